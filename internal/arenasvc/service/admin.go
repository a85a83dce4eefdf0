package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	log "github.com/sirupsen/logrus"
)

type AdminService struct {
	players  store.PlayerStore
	games    store.GameStore
	ledger   *LedgerService
	catalog  *CatalogService
	notifier Notifier
}

func NewAdminService(players store.PlayerStore, games store.GameStore, ledger *LedgerService, catalog *CatalogService, notifier Notifier) *AdminService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AdminService{players: players, games: games, ledger: ledger, catalog: catalog, notifier: notifier}
}

func (s *AdminService) Stats(ctx context.Context) (*models.Stats, error) {
	var (
		st  models.Stats
		err error
	)

	if st.TotalPlayers, err = s.players.Count(ctx); err != nil {
		return nil, err
	}
	if st.TotalGames, err = s.games.Count(ctx); err != nil {
		return nil, err
	}
	if st.ActiveGames, err = s.games.Count(ctx, models.StatusActive); err != nil {
		return nil, err
	}
	if st.CompletedGames, err = s.games.Count(ctx, models.StatusCompleted); err != nil {
		return nil, err
	}
	if st.TotalPoints, err = s.players.TotalPoints(ctx); err != nil {
		return nil, err
	}
	return &st, nil
}

type ResetReport struct {
	Players int64 `json:"players"`
	Games   int64 `json:"games"`
}

// Reset restores every player and every game row to its initial state. Both
// bulk writes are attempted even if the first one fails.
func (s *AdminService) Reset(ctx context.Context) (*ResetReport, error) {
	report := &ResetReport{}
	var errs []error

	n, err := s.ledger.ResetAll(ctx)
	if err != nil {
		log.Errorf("reset players: %s", err)
		errs = append(errs, fmt.Errorf("reset players: %w", err))
	}
	report.Players = n

	n, err = s.catalog.ResetAll(ctx)
	if err != nil {
		log.Errorf("reset games: %s", err)
		errs = append(errs, fmt.Errorf("reset games: %w", err))
	}
	report.Games = n

	log.Infof("admin reset: %d players, %d games", report.Players, report.Games)
	publishGameAndPlayers(s.notifier)
	return report, errors.Join(errs...)
}
