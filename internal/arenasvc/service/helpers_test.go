package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/metrics"
	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Publish(event string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string{}, n.events...)
}

func (n *recordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

// clock hands out strictly increasing times so ordering by timestamp is deterministic.
type clock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type testEnv struct {
	players    *store.PlayerMemoryStore
	games      *store.GameMemoryStore
	admins     *store.AdminMemoryStore
	notifier   *recordingNotifier
	metrics    *metrics.Metrics
	ledger     *LedgerService
	catalog    *CatalogService
	engine     *AttemptEngine
	settlement *SettlementProcessor
	admin      *AdminService
	auth       *AuthService
	tokenAuth  *jwtauth.JWTAuth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	e := &testEnv{
		players:   store.NewPlayerMemoryStore(),
		games:     store.NewGameMemoryStore(),
		admins:    store.NewAdminMemoryStore(),
		notifier:  &recordingNotifier{},
		metrics:   metrics.New("test"),
		tokenAuth: jwtauth.New("HS256", []byte("test-secret"), nil),
	}
	c := &clock{cur: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}

	e.ledger = NewLedgerService(e.players, e.notifier, LedgerOptions{})
	e.ledger.now = c.Now
	e.catalog = NewCatalogService(e.games, e.notifier)
	e.catalog.now = c.Now
	e.engine = NewAttemptEngine(e.players, e.games, e.catalog, e.notifier, e.metrics)
	e.engine.now = c.Now
	e.settlement = NewSettlementProcessor(e.players, e.games, e.notifier, e.metrics)
	e.settlement.now = c.Now
	e.admin = NewAdminService(e.players, e.games, e.ledger, e.catalog, e.notifier)
	e.auth = NewAuthService(e.admins, e.tokenAuth)
	e.auth.now = c.Now
	return e
}

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func (e *testEnv) player(t *testing.T, name string) *models.Player {
	t.Helper()
	p, err := e.ledger.CreatePlayer(context.Background(), name, "Engineering", name+"@example.com")
	require.NoError(t, err)
	return p
}

func (e *testEnv) template(t *testing.T, gameID string, typ models.GameType, cost, points int) *models.Game {
	t.Helper()
	g, err := e.catalog.CreateTemplate(context.Background(), TemplateInput{
		GameID:    gameID,
		GameName:  "Game " + gameID,
		EntryCost: intp(cost),
		MaxPoints: intp(points),
		Type:      typ,
	})
	require.NoError(t, err)
	return g
}

func (e *testEnv) reload(t *testing.T, playerID string) *models.Player {
	t.Helper()
	p, err := e.players.GetByID(context.Background(), playerID)
	require.NoError(t, err)
	return p
}

func (e *testEnv) play(t *testing.T, gameID string, results map[string]models.Result, order ...string) *models.Game {
	t.Helper()
	ctx := context.Background()

	inst, err := e.engine.StartAttempt(ctx, gameID, order)
	require.NoError(t, err)

	var rs []models.PlayerResult
	for _, id := range order {
		rs = append(rs, models.PlayerResult{PlayerID: id, Result: results[id]})
	}
	done, _, err := e.settlement.RecordResults(ctx, inst.ID.Hex(), rs)
	require.NoError(t, err)
	return done
}

// requireLedgerInvariants checks the per-player invariants that must hold after any sequence of operations.
func (e *testEnv) requireLedgerInvariants(t *testing.T) {
	t.Helper()
	players, err := e.players.List(context.Background())
	require.NoError(t, err)

	for _, p := range players {
		require.GreaterOrEqual(t, p.Tokens, 0, p.PlayerID)
		require.GreaterOrEqual(t, p.Points, 0, p.PlayerID)
		require.Equal(t, len(p.GameHistory), p.GamesPlayed, p.PlayerID)

		seen := map[string]bool{}
		for _, o := range p.OpponentsFaced {
			require.False(t, seen[o], "duplicate opponent %s for %s", o, p.PlayerID)
			require.NotEqual(t, p.PlayerID, o)
			seen[o] = true
		}
	}
}

// failingGames fails inserts on demand.
type failingGames struct {
	store.GameStore
	insertErr error
}

func (f *failingGames) Insert(ctx context.Context, g *models.Game) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.GameStore.Insert(ctx, g)
}

var errBoom = errors.New("boom")

// failingPlayers fails the next updateFails player updates.
type failingPlayers struct {
	store.PlayerStore

	mu          sync.Mutex
	updateFails int
}

func (f *failingPlayers) Update(ctx context.Context, p *models.Player) error {
	f.mu.Lock()
	fail := f.updateFails > 0
	if fail {
		f.updateFails--
	}
	f.mu.Unlock()

	if fail {
		return errBoom
	}
	return f.PlayerStore.Update(ctx, p)
}
