package service

import (
	"context"
	"errors"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	log "github.com/sirupsen/logrus"
)

// AttemptEngine spawns active instances from templates and binds players to them.
type AttemptEngine struct {
	players  store.PlayerStore
	games    store.GameStore
	catalog  *CatalogService
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewAttemptEngine(players store.PlayerStore, games store.GameStore, catalog *CatalogService, notifier Notifier, m *metrics.Metrics) *AttemptEngine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &AttemptEngine{
		players:  players,
		games:    games,
		catalog:  catalog,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

func eligibilityReason(e models.Eligibility) string {
	switch e {
	case models.AttemptCapReached:
		return "attempt_cap"
	case models.AlreadyWon:
		return "already_won"
	case models.AttemptInProgress:
		return "in_progress"
	case models.InsufficientTokens:
		return "tokens"
	}
	return "eligible"
}

func (e *AttemptEngine) checkEligible(p *models.Player, tmpl *models.Game) error {
	verdict := p.Eligibility(tmpl.GameID, tmpl.EntryCost)
	if verdict == models.Eligible {
		return nil
	}

	if e.metrics != nil {
		e.metrics.AttemptsRejected.WithLabelValues(eligibilityReason(verdict)).Inc()
	}

	switch verdict {
	case models.InsufficientTokens:
		return eligibilityf("%s doesn't have enough tokens", p.Name)
	case models.AttemptCapReached:
		return eligibilityf("%s has already played %s the maximum number of times (%d)", p.Name, tmpl.GameName, models.MaxAttempts)
	case models.AlreadyWon:
		return eligibilityf("%s has already won %s and cannot play again", p.Name, tmpl.GameName)
	default:
		return eligibilityf("%s has an unfinished attempt at %s", p.Name, tmpl.GameName)
	}
}

func (e *AttemptEngine) validatePlayerIDs(tmpl *models.Game, playerIDs []string) ([]string, error) {
	switch tmpl.Type {
	case models.GameTypeSingle:
		if len(playerIDs) != 1 {
			return nil, validationf("Single player game requires exactly 1 player")
		}
	case models.GameTypeFaceoff:
		if len(playerIDs) != 2 {
			return nil, validationf("Faceoff game requires exactly 2 players")
		}
	default:
		return nil, validationf("game %s has unknown type %q", tmpl.GameID, tmpl.Type)
	}

	ids := make([]string, len(playerIDs))
	seen := map[string]bool{}
	for i, id := range playerIDs {
		id = NormalizePlayerID(id)
		if id == "" {
			return nil, validationf("player id cannot be empty")
		}
		if seen[id] {
			return nil, validationf("player %s is listed more than once", id)
		}
		seen[id] = true
		ids[i] = id
	}
	return ids, nil
}

// StartAttempt debits the entry cost from every player and inserts a new
// active instance copying the template's rules. Every player is checked
// before anything is written; the per-player debit is a conditional write
// that re-checks eligibility, so concurrent starts cannot overdraw a player
// or exceed the attempt cap.
func (e *AttemptEngine) StartAttempt(ctx context.Context, gameID string, playerIDs []string) (*models.Game, error) {
	tmpl, err := e.catalog.ResolveTemplate(ctx, gameID)
	if err != nil {
		return nil, err
	}

	ids, err := e.validatePlayerIDs(tmpl, playerIDs)
	if err != nil {
		return nil, err
	}

	players, err := e.players.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(players) != len(ids) {
		return nil, validationf("One or more players not found")
	}
	for _, p := range players {
		if err := e.checkEligible(p, tmpl); err != nil {
			log.Infof("start %s rejected: %s", tmpl.GameID, err)
			return nil, err
		}
	}

	inst := tmpl.Spawn(ids, e.now())
	instanceID := inst.ID.Hex()

	var debited []string
	for _, id := range ids {
		_, err := mutatePlayer(ctx, e.players, id, func(p *models.Player) error {
			if err := e.checkEligible(p, tmpl); err != nil {
				return err
			}
			p.DebitTokens(tmpl.EntryCost)
			p.OpenAttempt(instanceID, tmpl.GameID, tmpl.EntryCost)
			return nil
		})
		if err != nil {
			if e.metrics != nil && errors.Is(err, ErrConflict) {
				e.metrics.StoreConflicts.Inc()
			}
			log.Infof("start %s for %s aborted: %s", tmpl.GameID, id, err)
			e.refund(ctx, debited, instanceID)
			if errors.Is(err, ErrNotFound) {
				return nil, validationf("One or more players not found")
			}
			return nil, err
		}
		debited = append(debited, id)
	}

	if err := e.games.Insert(ctx, inst); err != nil {
		log.Errorf("insert instance of %s: %s", tmpl.GameID, err)
		e.refund(ctx, debited, instanceID)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.AttemptsStarted.Inc()
	}
	log.Infof("game %s started as %s for %v", inst.GameID, instanceID, ids)
	publishGameAndPlayers(e.notifier)
	return inst, nil
}

// refund undoes the debit of an attempt that never got its instance row.
// It runs even when ctx is cancelled so no tokens are left stranded.
func (e *AttemptEngine) refund(ctx context.Context, playerIDs []string, instanceID string) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range playerIDs {
		_, err := mutatePlayer(ctx, e.players, id, func(p *models.Player) error {
			if a, ok := p.CloseAttempt(instanceID); ok {
				p.Tokens += a.EntryCost
			}
			return nil
		})
		if err != nil {
			log.Errorf("refund to %s for %s failed: %s", id, instanceID, err)
		}
	}
}
