package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementProcessor applies recorded outcomes of an active instance.
type SettlementProcessor struct {
	players  store.PlayerStore
	games    store.GameStore
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewSettlementProcessor(players store.PlayerStore, games store.GameStore, notifier Notifier, m *metrics.Metrics) *SettlementProcessor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SettlementProcessor{
		players:  players,
		games:    games,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

func validateResults(g *models.Game, results []models.PlayerResult) ([]models.PlayerResult, error) {
	if len(results) != len(g.PlayersInvolved) {
		return nil, validationf("Results count does not match players involved")
	}

	involved := map[string]bool{}
	for _, id := range g.PlayersInvolved {
		involved[id] = true
	}

	out := make([]models.PlayerResult, len(results))
	seen := map[string]bool{}
	for i, r := range results {
		id := NormalizePlayerID(r.PlayerID)
		if !involved[id] {
			return nil, validationf("player %s is not part of this game", id)
		}
		if seen[id] {
			return nil, validationf("player %s has more than one result", id)
		}
		if !r.Result.Valid() {
			return nil, validationf("result for %s must be Win or Lose", id)
		}
		seen[id] = true
		out[i] = models.PlayerResult{PlayerID: id, Result: r.Result}
	}
	return out, nil
}

// RecordResults completes the instance and settles each player once. Only one
// of several concurrent calls for the same instance gets past the
// active-to-completed transition; the others fail with a state error.
// A call on an already completed instance first settles any player whose
// settlement was cut short, then reports the state error.
func (s *SettlementProcessor) RecordResults(ctx context.Context, instanceID string, results []models.PlayerResult) (*models.Game, []*models.Player, error) {
	id, err := primitive.ObjectIDFromHex(instanceID)
	if err != nil {
		return nil, nil, validationf("invalid game instance id %q", instanceID)
	}

	g, err := s.games.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, notFoundf("Game instance not found")
	}
	if err != nil {
		return nil, nil, err
	}
	if g.Status == models.StatusCompleted {
		s.repair(ctx, g)
		return nil, nil, statef("Game is not active")
	}
	if g.Status != models.StatusActive {
		return nil, nil, statef("Game is not active")
	}

	results, err = validateResults(g, results)
	if err != nil {
		return nil, nil, err
	}

	completed, err := s.games.Complete(ctx, id, results)
	if errors.Is(err, store.ErrVersionConflict) {
		if s.metrics != nil {
			s.metrics.StoreConflicts.Inc()
		}
		return nil, nil, statef("Game is not active")
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, notFoundf("Game instance not found")
	}
	if err != nil {
		return nil, nil, err
	}

	// the instance is completed from here on, so settlement must not stop at the caller's deadline
	settleCtx := context.WithoutCancel(ctx)

	players := make([]*models.Player, 0, len(results))
	var errs []error
	for _, r := range results {
		p, err := s.settle(settleCtx, completed, r)
		if errors.Is(err, ErrNotFound) {
			log.Warnf("player %s of %s no longer exists, result not applied", r.PlayerID, instanceID)
			continue
		}
		if err != nil {
			log.Errorf("settle %s on %s: %s", r.PlayerID, instanceID, err)
			errs = append(errs, fmt.Errorf("settle %s: %w", r.PlayerID, err))
			continue
		}
		players = append(players, p)
	}

	publishGameAndPlayers(s.notifier)
	if len(errs) > 0 {
		return completed, players, errors.Join(errs...)
	}

	log.Infof("game %s (%s) completed: %v", completed.GameID, instanceID, results)
	return completed, players, nil
}

// settle applies one result. The open attempt recorded at start is the
// receipt for the debit: once it is closed the player is settled and a
// repeated call is a no-op.
func (s *SettlementProcessor) settle(ctx context.Context, g *models.Game, r models.PlayerResult) (*models.Player, error) {
	instanceID := g.ID.Hex()
	applied := false

	p, err := mutatePlayer(ctx, s.players, r.PlayerID, func(p *models.Player) error {
		a, ok := p.CloseAttempt(instanceID)
		applied = ok
		if !applied {
			return nil
		}

		points := g.PointsFor(r.Result)
		if r.Result == models.ResultWin {
			p.CreditWin(points, a.EntryCost)
		}
		p.RecordHistory(models.GameHistory{
			GameID:    g.GameID,
			GameName:  g.GameName,
			Result:    r.Result,
			Points:    points,
			Timestamp: s.now(),
		}, g.Opponents(p.PlayerID))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !applied {
		log.Warnf("player %s had no open attempt for %s, nothing to settle", r.PlayerID, instanceID)
	} else if s.metrics != nil {
		s.metrics.Settlements.WithLabelValues(string(r.Result)).Inc()
	}
	return p, nil
}

// repair settles the players of a completed instance that still hold its
// open attempt. Errors are logged; the next call or Reconcile retries.
func (s *SettlementProcessor) repair(ctx context.Context, g *models.Game) int {
	ctx = context.WithoutCancel(ctx)
	n := 0
	for _, r := range g.Results {
		p, err := s.players.GetByID(ctx, r.PlayerID)
		if err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				log.Errorf("repair %s on %s: %s", r.PlayerID, g.ID.Hex(), err)
			}
			continue
		}
		if !p.HasOpenAttempt(g.ID.Hex()) {
			continue
		}
		if _, err := s.settle(ctx, g, r); err != nil {
			log.Errorf("repair %s on %s: %s", r.PlayerID, g.ID.Hex(), err)
			continue
		}
		log.Infof("repaired settlement of %s on %s", r.PlayerID, g.ID.Hex())
		n++
	}
	if n > 0 {
		publishGameAndPlayers(s.notifier)
	}
	return n
}

// OrphanGrace is how old an open attempt must be before Reconcile treats a
// missing instance row as never inserted rather than still being inserted.
const OrphanGrace = time.Minute

// Reconcile walks every open attempt and closes the ones that can no longer
// be settled the normal way: attempts on completed instances are settled
// with the recorded result, and attempts whose instance row is missing are
// refunded. Attempts on active instances are left alone. It returns the
// number of attempts closed.
func (s *SettlementProcessor) Reconcile(ctx context.Context) (int, error) {
	players, err := s.players.List(ctx)
	if err != nil {
		return 0, err
	}

	closed := 0
	completed := map[primitive.ObjectID]bool{}
	for _, p := range players {
		for _, a := range p.OpenAttempts {
			if err := ctx.Err(); err != nil {
				return closed, err
			}

			id, err := primitive.ObjectIDFromHex(a.InstanceID)
			if err != nil {
				log.Warnf("player %s holds attempt with bad instance id %q", p.PlayerID, a.InstanceID)
				continue
			}

			g, err := s.games.GetByID(ctx, id)
			switch {
			case errors.Is(err, store.ErrNotFound):
				if s.now().Sub(id.Timestamp()) < OrphanGrace {
					continue
				}
				ok, err := s.refundOrphan(ctx, p.PlayerID, a.InstanceID)
				if err != nil {
					log.Errorf("reconcile: refund %s on %s: %s", p.PlayerID, a.InstanceID, err)
					continue
				}
				if ok {
					closed++
				}
			case err != nil:
				return closed, err
			case g.Status == models.StatusCompleted && !completed[id]:
				completed[id] = true
				closed += s.repair(ctx, g)
			}
		}
	}

	if closed > 0 {
		log.Infof("reconcile: closed %d open attempts", closed)
		publishGameAndPlayers(s.notifier)
	}
	return closed, nil
}

// refundOrphan returns the debit of an attempt whose instance was never stored.
func (s *SettlementProcessor) refundOrphan(ctx context.Context, playerID, instanceID string) (bool, error) {
	refunded := false
	_, err := mutatePlayer(ctx, s.players, playerID, func(p *models.Player) error {
		a, ok := p.CloseAttempt(instanceID)
		refunded = ok
		if ok {
			p.Tokens += a.EntryCost
		}
		return nil
	})
	return refunded, err
}
