package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlayerDefaults(t *testing.T) {
	e := newTestEnv(t)

	p1 := e.player(t, "Abebe")
	p2 := e.player(t, "Sara")

	assert.Equal(t, "ARX001", p1.PlayerID)
	assert.Equal(t, "ARX002", p2.PlayerID)
	assert.Equal(t, 10, p1.Tokens)
	assert.Zero(t, p1.Points)
	assert.Zero(t, p1.GamesPlayed)
	assert.Empty(t, p1.GameHistory)
	assert.Empty(t, p1.OpponentsFaced)
	assert.Equal(t, []string{comm.EventPlayerUpdated, comm.EventPlayerUpdated}, e.notifier.Events())
}

func TestCreatePlayerRequiresFields(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.ledger.CreatePlayer(context.Background(), "Abebe", "  ", "x")
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, e.notifier.Events())
}

func TestCreatePlayerConcurrentIDsAreUnique(t *testing.T) {
	e := newTestEnv(t)
	const n = 20

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := e.ledger.CreatePlayer(context.Background(), "P", "D", "C")
			if assert.NoError(t, err) {
				ids <- p.PlayerID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], id)
		seen[id] = true
	}
	assert.Len(t, seen, n)
}

func TestSyncSequenceContinuesAfterHighestID(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	// rows written by an older deployment, without going through the counter
	require.NoError(t, e.players.Create(ctx, models.NewPlayer("ARX007", "Old", "D", "C", 10, time.Now())))
	require.NoError(t, e.players.Create(ctx, models.NewPlayer("GUEST1", "Guest", "D", "C", 10, time.Now())))

	require.NoError(t, e.ledger.SyncSequence(ctx))

	p := e.player(t, "New")
	assert.Equal(t, "ARX008", p.PlayerID)
}

func TestCreatePlayerSkipsTakenID(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.players.Create(ctx, models.NewPlayer("ARX001", "Old", "D", "C", 10, time.Now())))

	p := e.player(t, "New")
	assert.Equal(t, "ARX002", p.PlayerID)
}

func TestLeaderboardTieBreak(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	p1 := e.player(t, "One")
	p2 := e.player(t, "Two")
	p3 := e.player(t, "Three")

	setStats := func(id string, points, played int) {
		_, err := mutatePlayer(ctx, e.players, id, func(p *models.Player) error {
			p.Points = points
			for i := 0; i < played; i++ {
				p.RecordHistory(models.GameHistory{GameID: "G1", Result: models.ResultLose}, nil)
			}
			return nil
		})
		require.NoError(t, err)
	}
	setStats(p1.PlayerID, 10, 3)
	setStats(p2.PlayerID, 10, 2)
	setStats(p3.PlayerID, 5, 1)

	board, err := e.ledger.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 3)

	assert.Equal(t, p2.PlayerID, board[0].PlayerID)
	assert.Equal(t, p1.PlayerID, board[1].PlayerID)
	assert.Equal(t, p3.PlayerID, board[2].PlayerID)
	for i, row := range board {
		assert.Equal(t, i+1, row.Rank)
	}
}

func TestLeaderboardEarlierRegistrationWinsFullTie(t *testing.T) {
	e := newTestEnv(t)
	first := e.player(t, "First")
	e.player(t, "Second")

	board, err := e.ledger.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.PlayerID, board[0].PlayerID)
}

func TestListPlayersNewestFirstOnEqualPoints(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	older := e.player(t, "Older")
	newer := e.player(t, "Newer")
	top := e.player(t, "Top")
	_, err := e.ledger.UpdatePlayer(ctx, top.PlayerID, PlayerUpdate{Points: intp(3)})
	require.NoError(t, err)

	players, err := e.ledger.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, top.PlayerID, players[0].PlayerID)
	assert.Equal(t, newer.PlayerID, players[1].PlayerID)
	assert.Equal(t, older.PlayerID, players[2].PlayerID)
}

func TestUpdatePlayer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.player(t, "Abebe")

	updated, err := e.ledger.UpdatePlayer(ctx, "arx001", PlayerUpdate{
		Name:    strp("  "),
		Contact: strp("new@example.com"),
		Tokens:  intp(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "Abebe", updated.Name)
	assert.Equal(t, "new@example.com", updated.Contact)
	assert.Equal(t, 4, updated.Tokens)
	assert.Equal(t, 4, e.reload(t, p.PlayerID).Tokens)

	_, err = e.ledger.UpdatePlayer(ctx, p.PlayerID, PlayerUpdate{Points: intp(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.ledger.UpdatePlayer(ctx, "ARX999", PlayerUpdate{Tokens: intp(1)})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePlayer(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	p := e.player(t, "Abebe")

	require.NoError(t, e.ledger.DeletePlayer(ctx, p.PlayerID))

	_, err := e.ledger.GetPlayer(ctx, p.PlayerID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.ledger.DeletePlayer(ctx, p.PlayerID), ErrNotFound)
}
