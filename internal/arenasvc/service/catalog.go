package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"github.com/avvvet/arenax-services/internal/arenasvc/store"
	"github.com/avvvet/arenax-services/internal/comm"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CatalogService resolves and edits game templates.
type CatalogService struct {
	games    store.GameStore
	notifier Notifier
	now      func() time.Time

	// guards the check-then-insert of CreateTemplate within this process
	createMu sync.Mutex
}

func NewCatalogService(games store.GameStore, notifier Notifier) *CatalogService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CatalogService{games: games, notifier: notifier, now: time.Now}
}

// ResolveTemplate returns the newest row for gameID whatever its status.
func (s *CatalogService) ResolveTemplate(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := s.games.Latest(ctx, models.NormalizeGameID(gameID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("Game template not found")
	}
	return g, err
}

// ResolveActiveTemplate returns the newest pending or completed row for gameID.
func (s *CatalogService) ResolveActiveTemplate(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := s.games.Latest(ctx, models.NormalizeGameID(gameID), models.StatusPending, models.StatusCompleted)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("Game template not found")
	}
	return g, err
}

// ListTemplates returns one catalogue row per gameId: the oldest untouched
// template when there is one, otherwise the oldest row.
func (s *CatalogService) ListTemplates(ctx context.Context) ([]*models.Game, error) {
	rows, err := s.games.List(ctx)
	if err != nil {
		return nil, err
	}

	type pick struct{ template, oldest *models.Game }
	picks := map[string]*pick{}
	older := func(a, b *models.Game) bool {
		return b == nil || !a.Timestamp.After(b.Timestamp)
	}

	// rows arrive newest first within a gameId, so walking them keeps the oldest on ties
	for _, g := range rows {
		p, ok := picks[g.GameID]
		if !ok {
			p = &pick{}
			picks[g.GameID] = p
		}
		if older(g, p.oldest) {
			p.oldest = g
		}
		if len(g.PlayersInvolved) == 0 && older(g, p.template) {
			p.template = g
		}
	}

	out := make([]*models.Game, 0, len(picks))
	for _, p := range picks {
		chosen := p.template
		if chosen == nil {
			chosen = p.oldest
		}
		out = append(out, chosen.TemplateView())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GameID < out[j].GameID })
	return out, nil
}

// ListGames returns every row, gameId ascending then newest first.
func (s *CatalogService) ListGames(ctx context.Context) ([]*models.Game, error) {
	return s.games.List(ctx)
}

// GetGame returns the newest row for gameID.
func (s *CatalogService) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	g, err := s.games.Latest(ctx, models.NormalizeGameID(gameID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("Game not found")
	}
	return g, err
}

// GetInstance loads a single row by its object id.
func (s *CatalogService) GetInstance(ctx context.Context, instanceID string) (*models.Game, error) {
	id, err := primitive.ObjectIDFromHex(instanceID)
	if err != nil {
		return nil, validationf("invalid game instance id %q", instanceID)
	}
	g, err := s.games.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundf("Game not found")
	}
	return g, err
}

type TemplateInput struct {
	GameID      string          `json:"gameId"`
	GameName    string          `json:"gameName"`
	Description string          `json:"description"`
	EntryCost   *int            `json:"entryCost"`
	MaxPoints   *int            `json:"maxPoints"`
	Type        models.GameType `json:"type"`
}

func (in TemplateInput) validate() error {
	if strings.TrimSpace(in.GameID) == "" || strings.TrimSpace(in.GameName) == "" {
		return validationf("gameId and gameName are required")
	}
	if in.EntryCost == nil || in.MaxPoints == nil {
		return validationf("entryCost and maxPoints are required")
	}
	if *in.EntryCost < 0 || *in.MaxPoints < 0 {
		return validationf("entryCost and maxPoints cannot be negative")
	}
	if !in.Type.Valid() {
		return validationf("Type must be either \"single\" or \"faceoff\"")
	}
	return nil
}

func (s *CatalogService) CreateTemplate(ctx context.Context, in TemplateInput) (*models.Game, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	gameID := models.NormalizeGameID(in.GameID)
	_, err := s.ResolveActiveTemplate(ctx, gameID)
	if err == nil {
		return nil, conflictf("Game template with this ID already exists")
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	g := models.NewTemplate(gameID, in.GameName, in.Description, *in.EntryCost, *in.MaxPoints, in.Type, s.now())
	if err := s.games.Insert(ctx, g); err != nil {
		return nil, err
	}

	log.Infof("game template %s (%s) created", g.GameID, g.GameName)
	s.notifier.Publish(comm.EventGameUpdated)
	return g, nil
}

// TemplateUpdate carries the editable template fields. Nil fields are left alone.
type TemplateUpdate struct {
	GameName    *string          `json:"gameName"`
	Description *string          `json:"description"`
	EntryCost   *int             `json:"entryCost"`
	MaxPoints   *int             `json:"maxPoints"`
	Type        *models.GameType `json:"type"`
}

func (u TemplateUpdate) validate() error {
	if u.GameName != nil && strings.TrimSpace(*u.GameName) == "" {
		return validationf("gameName cannot be empty")
	}
	if u.EntryCost != nil && *u.EntryCost < 0 {
		return validationf("entryCost cannot be negative")
	}
	if u.MaxPoints != nil && *u.MaxPoints < 0 {
		return validationf("maxPoints cannot be negative")
	}
	if u.Type != nil && !u.Type.Valid() {
		return validationf("Type must be either \"single\" or \"faceoff\"")
	}
	return nil
}

// UpdateTemplate edits the newest row for gameID. An active row is only
// edited with force, and then the edit goes to a new pending row branched
// from it: the running instance keeps the rules its players paid under.
func (s *CatalogService) UpdateTemplate(ctx context.Context, gameID string, u TemplateUpdate, force bool) (*models.Game, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}

	g, err := s.ResolveTemplate(ctx, gameID)
	if err != nil {
		return nil, err
	}

	branched := false
	if g.Status == models.StatusActive {
		if !force {
			return nil, statef("Cannot edit active game. Complete it first or use force flag.")
		}
		g = g.Branch(s.now())
		branched = true
	}
	if u.Type != nil && *u.Type != g.Type && len(g.PlayersInvolved) > 0 {
		return nil, statef("cannot change the type of game %s once players are bound", g.GameID)
	}

	if u.GameName != nil {
		g.GameName = strings.TrimSpace(*u.GameName)
	}
	if u.Description != nil {
		g.Description = strings.TrimSpace(*u.Description)
	}
	if u.EntryCost != nil {
		g.EntryCost = *u.EntryCost
	}
	if u.MaxPoints != nil {
		g.MaxPoints = *u.MaxPoints
	}
	if u.Type != nil {
		g.Type = *u.Type
	}

	if branched {
		err = s.games.Insert(ctx, g)
	} else {
		err = s.games.Replace(ctx, g)
	}
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, statef("Game %s changed state while being edited, try again", g.GameID)
	}
	if err != nil {
		return nil, err
	}

	log.Infof("game %s updated (row %s, force=%t, branched=%t)", g.GameID, g.ID.Hex(), force, branched)
	s.notifier.Publish(comm.EventGameUpdated)
	return g, nil
}

// DeleteTemplate removes every non-active row for gameID, refusing while the newest row is active.
func (s *CatalogService) DeleteTemplate(ctx context.Context, gameID string) error {
	g, err := s.ResolveTemplate(ctx, gameID)
	if err != nil {
		return err
	}
	if g.Status == models.StatusActive {
		return statef("Cannot delete active game. Complete it first.")
	}

	n, err := s.games.DeleteInactive(ctx, g.GameID)
	if err != nil {
		return err
	}

	log.Infof("game %s deleted (%d rows)", g.GameID, n)
	s.notifier.Publish(comm.EventGameUpdated)
	return nil
}

type seedGame struct {
	gameID, name, description string
	entryCost, maxPoints      int
	gameType                  models.GameType
}

var defaultCatalog = []seedGame{
	{"G1", "Match the Soda", "Match the soda cans in the correct order. Test your memory and pattern recognition skills!", 1, 3, models.GameTypeSingle},
	{"G2", "Guess the Meme", "Guess the meme! Identify popular memes from images or descriptions. How well do you know internet culture?", 1, 3, models.GameTypeSingle},
	{"G3", "Flag Race", "Flag Race - Identify country flags as fast as you can. Speed and knowledge are key!", 1, 3, models.GameTypeSingle},
	{"G4", "Speed Typing", "Speed Typing - Type the given text as quickly and accurately as possible. Every second counts!", 1, 3, models.GameTypeSingle},
	{"G5", "Memory Match", "Memory Match - Find matching pairs of cards. Challenge your short-term memory!", 1, 3, models.GameTypeSingle},
	{"G6", "Math Challenge", "Math Challenge - Solve mathematical problems under time pressure. Quick thinking required!", 1, 3, models.GameTypeSingle},
	{"G7", "Word Puzzle", "Word Puzzle - Unscramble words or solve word-based puzzles. Vocabulary and logic combined!", 1, 3, models.GameTypeSingle},
	{"G8", "Reaction Test", "Reaction Test - Test your reflexes! Click when you see the signal. Fastest reaction wins!", 1, 3, models.GameTypeSingle},
	{"G9", "Tic Tac Toe", "Tic Tac Toe - Classic faceoff game! Challenge another player in this strategic battle.", 2, 5, models.GameTypeFaceoff},
	{"G10", "Rock Paper Scissors", "Rock Paper Scissors - The ultimate game of chance and strategy. Best of luck!", 2, 5, models.GameTypeFaceoff},
}

type SeedReport struct {
	Created    []string `json:"created"`
	Skipped    []string `json:"skipped"`
	Backfilled []string `json:"backfilled"`
	Failed     []string `json:"failed"`
}

// Seed inserts the default catalogue. Existing ids are skipped, with their
// description backfilled when empty. A failing item is logged and skipped.
func (s *CatalogService) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{Created: []string{}, Skipped: []string{}, Backfilled: []string{}, Failed: []string{}}

	for _, d := range defaultCatalog {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		_, err := s.games.Latest(ctx, d.gameID)
		switch {
		case err == nil:
			report.Skipped = append(report.Skipped, d.gameID)
			n, err := s.games.SetDescriptionIfEmpty(ctx, d.gameID, d.description)
			if err != nil {
				log.Errorf("seed: backfill description of %s: %s", d.gameID, err)
				report.Failed = append(report.Failed, d.gameID)
				continue
			}
			if n > 0 {
				report.Backfilled = append(report.Backfilled, d.gameID)
			}
		case errors.Is(err, store.ErrNotFound):
			g := models.NewTemplate(d.gameID, d.name, d.description, d.entryCost, d.maxPoints, d.gameType, s.now())
			if err := s.games.Insert(ctx, g); err != nil {
				log.Errorf("seed: insert %s: %s", d.gameID, err)
				report.Failed = append(report.Failed, d.gameID)
				continue
			}
			report.Created = append(report.Created, d.gameID)
		default:
			log.Errorf("seed: lookup %s: %s", d.gameID, err)
			report.Failed = append(report.Failed, d.gameID)
		}
	}

	log.Infof("seed: %d created, %d skipped, %d backfilled, %d failed",
		len(report.Created), len(report.Skipped), len(report.Backfilled), len(report.Failed))
	s.notifier.Publish(comm.EventGameUpdated)
	return report, nil
}

// ResetAll puts every row back to pending with no players or results.
func (s *CatalogService) ResetAll(ctx context.Context) (int64, error) {
	return s.games.ResetAll(ctx)
}
