package service

import (
	"context"
	"testing"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/comm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	e.template(t, "G2", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")
	b := e.player(t, "B")

	e.play(t, "G1", map[string]models.Result{a.PlayerID: models.ResultWin}, a.PlayerID)
	_, err := e.engine.StartAttempt(ctx, "G2", []string{b.PlayerID})
	require.NoError(t, err)

	st, err := e.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &models.Stats{
		TotalPlayers:   2,
		TotalGames:     4,
		ActiveGames:    1,
		CompletedGames: 1,
		TotalPoints:    3,
	}, st)
}

func TestResetRestoresEverything(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G9", models.GameTypeFaceoff, 2, 5)
	a := e.player(t, "A")
	b := e.player(t, "B")
	e.play(t, "G9", map[string]models.Result{a.PlayerID: models.ResultWin, b.PlayerID: models.ResultLose}, a.PlayerID, b.PlayerID)
	e.notifier.Reset()

	report, err := e.admin.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ResetReport{Players: 2, Games: 2}, report)

	for _, id := range []string{a.PlayerID, b.PlayerID} {
		p := e.reload(t, id)
		assert.Equal(t, 10, p.Tokens)
		assert.Zero(t, p.Points)
		assert.Zero(t, p.GamesPlayed)
		assert.Empty(t, p.GameHistory)
		assert.Empty(t, p.OpponentsFaced)
	}

	rows, err := e.catalog.ListGames(ctx)
	require.NoError(t, err)
	for _, g := range rows {
		assert.Equal(t, models.StatusPending, g.Status)
		assert.Empty(t, g.PlayersInvolved)
		assert.Empty(t, g.Results)
	}

	assert.ElementsMatch(t, []string{comm.EventGameUpdated, comm.EventPlayerUpdated}, e.notifier.Events())

	// players are eligible again after a reset
	e.play(t, "G9", map[string]models.Result{a.PlayerID: models.ResultWin, b.PlayerID: models.ResultLose}, a.PlayerID, b.PlayerID)
	e.requireLedgerInvariants(t)
}
