package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/avvvet/arenax-services/internal/comm"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultPlayerIDPrefix = "ARX"
	DefaultStartingTokens = 10

	maxCreateRetries = 5
	maxUpdateRetries = 8
)

type LedgerOptions struct {
	PlayerIDPrefix string
	StartingTokens int
}

// LedgerService owns player identity and balances.
type LedgerService struct {
	players  store.PlayerStore
	notifier Notifier
	prefix   string
	starting int
	now      func() time.Time
}

func NewLedgerService(players store.PlayerStore, notifier Notifier, opts LedgerOptions) *LedgerService {
	if opts.PlayerIDPrefix == "" {
		opts.PlayerIDPrefix = DefaultPlayerIDPrefix
	}
	if opts.StartingTokens <= 0 {
		opts.StartingTokens = DefaultStartingTokens
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &LedgerService{
		players:  players,
		notifier: notifier,
		prefix:   strings.ToUpper(opts.PlayerIDPrefix),
		starting: opts.StartingTokens,
		now:      time.Now,
	}
}

func (s *LedgerService) StartingTokens() int { return s.starting }

// NormalizePlayerID upper-cases and trims a player id.
func NormalizePlayerID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// SyncSequence raises the id counter to the highest suffix already in use.
func (s *LedgerService) SyncSequence(ctx context.Context) error {
	players, err := s.players.List(ctx)
	if err != nil {
		return err
	}

	var highest int64
	for _, p := range players {
		if n, ok := s.suffix(p.PlayerID); ok && n > highest {
			highest = n
		}
	}

	if err := s.players.EnsurePlayerSeqAtLeast(ctx, highest); err != nil {
		return err
	}
	log.Infof("player id sequence synced at %d", highest)
	return nil
}

func (s *LedgerService) suffix(playerID string) (int64, bool) {
	if !strings.HasPrefix(playerID, s.prefix) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(playerID, s.prefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (s *LedgerService) CreatePlayer(ctx context.Context, name, department, contact string) (*models.Player, error) {
	name = strings.TrimSpace(name)
	department = strings.TrimSpace(department)
	contact = strings.TrimSpace(contact)
	if name == "" || department == "" || contact == "" {
		return nil, validationf("name, department and contact are required")
	}

	for i := 0; i < maxCreateRetries; i++ {
		seq, err := s.players.NextPlayerSeq(ctx)
		if err != nil {
			return nil, err
		}

		p := models.NewPlayer(models.FormatPlayerID(s.prefix, seq), name, department, contact, s.starting, s.now())
		err = s.players.Create(ctx, p)
		if errors.Is(err, store.ErrDuplicate) {
			log.Warnf("player id %s already taken, drawing the next one", p.PlayerID)
			continue
		}
		if err != nil {
			return nil, err
		}

		log.Infof("player %s (%s) registered", p.PlayerID, p.Name)
		s.notifier.Publish(comm.EventPlayerUpdated)
		return p, nil
	}

	return nil, fmt.Errorf("create player: no free id after %d tries", maxCreateRetries)
}

func (s *LedgerService) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	p, err := s.players.GetByID(ctx, NormalizePlayerID(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("Player not found")
	}
	return p, err
}

// ListPlayers returns players by points descending, newest registration first on ties.
func (s *LedgerService) ListPlayers(ctx context.Context) ([]*models.Player, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Points != players[j].Points {
			return players[i].Points > players[j].Points
		}
		return players[i].CreatedAt.After(players[j].CreatedAt)
	})
	return players, nil
}

// RankPlayers sorts into leaderboard order: points desc, games played asc,
// registration asc. Player id breaks any remaining tie so the order is total.
func RankPlayers(players []*models.Player) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.GamesPlayed != b.GamesPlayed {
			return a.GamesPlayed < b.GamesPlayed
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.PlayerID < b.PlayerID
	})
}

func (s *LedgerService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return nil, err
	}
	RankPlayers(players)

	board := make([]models.LeaderboardEntry, len(players))
	for i, p := range players {
		board[i] = models.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    p.PlayerID,
			Name:        p.Name,
			Department:  p.Department,
			Points:      p.Points,
			Tokens:      p.Tokens,
			GamesPlayed: p.GamesPlayed,
		}
	}
	return board, nil
}

// PlayerUpdate holds the admin-editable fields. Nil or blank fields are left alone.
type PlayerUpdate struct {
	Name       *string `json:"name"`
	Department *string `json:"department"`
	Contact    *string `json:"contact"`
	Tokens     *int    `json:"tokens"`
	Points     *int    `json:"points"`
}

func (u PlayerUpdate) validate() error {
	if u.Tokens != nil && *u.Tokens < 0 {
		return validationf("tokens cannot be negative")
	}
	if u.Points != nil && *u.Points < 0 {
		return validationf("points cannot be negative")
	}
	return nil
}

func setIfNotBlank(dst *string, v *string) {
	if v == nil {
		return
	}
	if t := strings.TrimSpace(*v); t != "" {
		*dst = t
	}
}

func (s *LedgerService) UpdatePlayer(ctx context.Context, playerID string, u PlayerUpdate) (*models.Player, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, NormalizePlayerID(playerID), func(p *models.Player) error {
		setIfNotBlank(&p.Name, u.Name)
		setIfNotBlank(&p.Department, u.Department)
		setIfNotBlank(&p.Contact, u.Contact)
		if u.Tokens != nil {
			p.Tokens = *u.Tokens
		}
		if u.Points != nil {
			p.Points = *u.Points
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(comm.EventPlayerUpdated)
	return p, nil
}

func (s *LedgerService) DeletePlayer(ctx context.Context, playerID string) error {
	err := s.players.Delete(ctx, NormalizePlayerID(playerID))
	if errors.Is(err, store.ErrNotFound) {
		return notFoundf("Player not found")
	}
	if err != nil {
		return err
	}

	s.notifier.Publish(comm.EventPlayerUpdated)
	return nil
}

// ResetAll restores every player to creation defaults in one bulk write.
func (s *LedgerService) ResetAll(ctx context.Context) (int64, error) {
	return s.players.ResetAll(ctx, s.starting)
}

// mutate applies fn to a fresh copy of the player and writes it back,
// re-reading and re-applying when a concurrent write wins.
func (s *LedgerService) mutate(ctx context.Context, playerID string, fn func(*models.Player) error) (*models.Player, error) {
	return mutatePlayer(ctx, s.players, playerID, fn)
}

func mutatePlayer(ctx context.Context, players store.PlayerStore, playerID string, fn func(*models.Player) error) (*models.Player, error) {
	for i := 0; i < maxUpdateRetries; i++ {
		p, err := players.GetByID(ctx, playerID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundf("Player not found")
		}
		if err != nil {
			return nil, err
		}

		if err := fn(p); err != nil {
			return nil, err
		}

		err = players.Update(ctx, p)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, conflictf("player %s is being modified concurrently, try again", playerID)
}
