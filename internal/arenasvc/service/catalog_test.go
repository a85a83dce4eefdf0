package service

import (
	"context"
	"testing"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreateTemplateNormalizesAndValidates(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	g, err := e.catalog.CreateTemplate(ctx, TemplateInput{
		GameID: " g1 ", GameName: "Flag Race", EntryCost: intp(1), MaxPoints: intp(3), Type: models.GameTypeSingle,
	})
	require.NoError(t, err)
	assert.Equal(t, "G1", g.GameID)
	assert.Equal(t, models.StatusPending, g.Status)

	_, err = e.catalog.CreateTemplate(ctx, TemplateInput{
		GameID: "G2", GameName: "Team", EntryCost: intp(1), MaxPoints: intp(3), Type: "team",
	})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.catalog.CreateTemplate(ctx, TemplateInput{GameID: "G3", GameName: "No cost", Type: models.GameTypeSingle})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateTemplateConflictButRepeatedStarts(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")
	b := e.player(t, "B")

	_, err := e.catalog.CreateTemplate(ctx, TemplateInput{
		GameID: "g1", GameName: "Again", EntryCost: intp(1), MaxPoints: intp(3), Type: models.GameTypeSingle,
	})
	assert.ErrorIs(t, err, ErrConflict)

	first, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)
	second, err := e.engine.StartAttempt(ctx, "G1", []string{b.PlayerID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	// the pending template row still blocks a duplicate
	_, err = e.catalog.CreateTemplate(ctx, TemplateInput{
		GameID: "G1", GameName: "Again", EntryCost: intp(1), MaxPoints: intp(3), Type: models.GameTypeSingle,
	})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateTemplateAllowedWhenOnlyActiveRowsRemain(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tmpl := e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	_, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)

	// drop the template row itself, leaving the in-flight instance
	_, err = e.games.DeleteInactive(ctx, tmpl.GameID)
	require.NoError(t, err)

	_, err = e.catalog.CreateTemplate(ctx, TemplateInput{
		GameID: "G1", GameName: "Fresh", EntryCost: intp(1), MaxPoints: intp(3), Type: models.GameTypeSingle,
	})
	assert.NoError(t, err)
}

func TestResolveTemplateUsesLatestRow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	inst, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)

	latest, err := e.catalog.ResolveTemplate(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, inst.ID, latest.ID)

	_, err = e.catalog.ResolveActiveTemplate(ctx, "G1")
	require.NoError(t, err)

	_, err = e.catalog.ResolveTemplate(ctx, "G404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListTemplatesOnePerGame(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tmpl := e.template(t, "G2", models.GameTypeSingle, 1, 3)
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	e.play(t, "G2", map[string]models.Result{a.PlayerID: models.ResultWin}, a.PlayerID)

	templates, err := e.catalog.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)

	assert.Equal(t, "G1", templates[0].GameID)
	assert.Equal(t, "G2", templates[1].GameID)
	assert.Equal(t, tmpl.ID, templates[1].ID)
	for _, g := range templates {
		assert.Equal(t, models.StatusPending, g.Status)
		assert.Empty(t, g.PlayersInvolved)
		assert.Empty(t, g.Results)
	}
}

func TestListTemplatesFallsBackToOldestRow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	tmpl := e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	first, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)
	_, err = e.games.DeleteInactive(ctx, tmpl.GameID)
	require.NoError(t, err)

	templates, err := e.catalog.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, first.ID, templates[0].ID)
	assert.Equal(t, models.StatusPending, templates[0].Status)
	assert.Empty(t, templates[0].PlayersInvolved)
}

func TestUpdateTemplateActiveNeedsForce(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")
	b := e.player(t, "B")

	older, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)
	latest, err := e.engine.StartAttempt(ctx, "G1", []string{b.PlayerID})
	require.NoError(t, err)

	_, err = e.catalog.UpdateTemplate(ctx, "G1", TemplateUpdate{MaxPoints: intp(9)}, false)
	assert.ErrorIs(t, err, ErrState)

	updated, err := e.catalog.UpdateTemplate(ctx, "G1", TemplateUpdate{MaxPoints: intp(9)}, true)
	require.NoError(t, err)
	assert.NotEqual(t, latest.ID, updated.ID)
	assert.NotEqual(t, older.ID, updated.ID)
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Empty(t, updated.PlayersInvolved)
	assert.Equal(t, 9, updated.MaxPoints)

	// running instances keep their rules
	for _, id := range []primitive.ObjectID{older.ID, latest.ID} {
		inst, err := e.games.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, inst.Status)
		assert.Equal(t, 3, inst.MaxPoints)
	}

	newest, err := e.catalog.ResolveTemplate(ctx, "G1")
	require.NoError(t, err)
	assert.Equal(t, updated.ID, newest.ID)

	// a second edit lands on the branch in place
	again, err := e.catalog.UpdateTemplate(ctx, "G1", TemplateUpdate{EntryCost: intp(4)}, false)
	require.NoError(t, err)
	assert.Equal(t, updated.ID, again.ID)
	assert.Equal(t, 9, again.MaxPoints)
}

func TestUpdateTemplateRejectsTypeChangeOnBoundRow(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")
	e.play(t, "G1", map[string]models.Result{a.PlayerID: models.ResultLose}, a.PlayerID)

	faceoff := models.GameTypeFaceoff
	_, err := e.catalog.UpdateTemplate(ctx, "G1", TemplateUpdate{Type: &faceoff}, false)
	assert.ErrorIs(t, err, ErrState)
}

func TestDeleteTemplate(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	inst, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)
	assert.ErrorIs(t, e.catalog.DeleteTemplate(ctx, "G1"), ErrState)

	_, _, err = e.settlement.RecordResults(ctx, inst.ID.Hex(), []models.PlayerResult{{PlayerID: a.PlayerID, Result: models.ResultLose}})
	require.NoError(t, err)

	require.NoError(t, e.catalog.DeleteTemplate(ctx, "G1"))
	_, err = e.catalog.GetGame(ctx, "G1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, e.catalog.DeleteTemplate(ctx, "G1"), ErrNotFound)
}

func TestSeedIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	report, err := e.catalog.Seed(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Created, 10)
	assert.Empty(t, report.Failed)

	report, err = e.catalog.Seed(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Created)
	assert.Len(t, report.Skipped, 10)
	assert.Empty(t, report.Backfilled)

	templates, err := e.catalog.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Len(t, templates, 10)

	var singles, faceoffs int
	for _, g := range templates {
		switch g.Type {
		case models.GameTypeSingle:
			singles++
			assert.Equal(t, 1, g.EntryCost)
		case models.GameTypeFaceoff:
			faceoffs++
			assert.Equal(t, 2, g.EntryCost)
			assert.Equal(t, 5, g.MaxPoints)
		}
		assert.NotEmpty(t, g.Description)
	}
	assert.Equal(t, 8, singles)
	assert.Equal(t, 2, faceoffs)
}

func TestSeedBackfillsMissingDescription(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G9", models.GameTypeFaceoff, 2, 5)

	report, err := e.catalog.Seed(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Created, 9)
	assert.Equal(t, []string{"G9"}, report.Backfilled)

	g, err := e.catalog.GetGame(ctx, "G9")
	require.NoError(t, err)
	assert.Contains(t, g.Description, "Tic Tac Toe")
	assert.Equal(t, "Game G9", g.GameName)
}

func TestGetInstance(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.template(t, "G1", models.GameTypeSingle, 1, 3)
	a := e.player(t, "A")

	inst, err := e.engine.StartAttempt(ctx, "G1", []string{a.PlayerID})
	require.NoError(t, err)

	got, err := e.catalog.GetInstance(ctx, inst.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []string{a.PlayerID}, got.PlayersInvolved)
	assert.Equal(t, models.StatusActive, got.Status)

	_, err = e.catalog.GetInstance(ctx, "nope")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.catalog.GetInstance(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}
