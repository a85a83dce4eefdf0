package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The memory stores back local runs without MONGODB_URI and the service tests.
// They keep the same conditional-write contract as the Mongo stores.

type PlayerMemoryStore struct {
	mu      sync.Mutex
	seq     int64
	players map[string]*models.Player
}

func NewPlayerMemoryStore() *PlayerMemoryStore {
	return &PlayerMemoryStore{players: make(map[string]*models.Player)}
}

func (s *PlayerMemoryStore) NextPlayerSeq(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq, nil
}

func (s *PlayerMemoryStore) EnsurePlayerSeqAtLeast(ctx context.Context, floor int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if floor > s.seq {
		s.seq = floor
	}
	return nil
}

func (s *PlayerMemoryStore) Create(ctx context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.PlayerID]; ok {
		return ErrDuplicate
	}
	s.players[p.PlayerID] = p.Clone()
	return nil
}

func (s *PlayerMemoryStore) GetByID(ctx context.Context, playerID string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (s *PlayerMemoryStore) GetMany(ctx context.Context, playerIDs []string) ([]*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*models.Player{}
	seen := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		if p, ok := s.players[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (s *PlayerMemoryStore) List(ctx context.Context) ([]*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (s *PlayerMemoryStore) Update(ctx context.Context, p *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.players[p.PlayerID]
	if !ok || cur.Version != p.Version {
		return ErrVersionConflict
	}
	p.Version++
	s.players[p.PlayerID] = p.Clone()
	return nil
}

func (s *PlayerMemoryStore) Delete(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[playerID]; !ok {
		return ErrNotFound
	}
	delete(s.players, playerID)
	return nil
}

func (s *PlayerMemoryStore) ResetAll(ctx context.Context, startingTokens int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		p.Reset(startingTokens)
		p.Version++
	}
	return int64(len(s.players)), nil
}

func (s *PlayerMemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.players)), nil
}

func (s *PlayerMemoryStore) TotalPoints(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, p := range s.players {
		total += int64(p.Points)
	}
	return total, nil
}

type memoryGame struct {
	seq  int64
	game *models.Game
}

type GameMemoryStore struct {
	mu    sync.Mutex
	seq   int64
	games map[primitive.ObjectID]*memoryGame
}

func NewGameMemoryStore() *GameMemoryStore {
	return &GameMemoryStore{games: make(map[primitive.ObjectID]*memoryGame)}
}

// newer reports whether a sorts after b in creation order.
func newer(a, b *memoryGame) bool {
	if !a.game.Timestamp.Equal(b.game.Timestamp) {
		return a.game.Timestamp.After(b.game.Timestamp)
	}
	return a.seq > b.seq
}

func (s *GameMemoryStore) Insert(ctx context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, ok := s.games[g.ID]; ok {
		return ErrDuplicate
	}
	s.seq++
	s.games[g.ID] = &memoryGame{seq: s.seq, game: g.Clone()}
	return nil
}

func (s *GameMemoryStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mg, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return mg.game.Clone(), nil
}

func hasStatus(st models.Status, statuses []models.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *GameMemoryStore) Latest(ctx context.Context, gameID string, statuses ...models.Status) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *memoryGame
	for _, mg := range s.games {
		if mg.game.GameID != gameID || !hasStatus(mg.game.Status, statuses) {
			continue
		}
		if best == nil || newer(mg, best) {
			best = mg
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best.game.Clone(), nil
}

func (s *GameMemoryStore) List(ctx context.Context) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*memoryGame, 0, len(s.games))
	for _, mg := range s.games {
		rows = append(rows, mg)
	}
	sort.Slice(rows, func(i, j int) bool {
		if c := strings.Compare(rows[i].game.GameID, rows[j].game.GameID); c != 0 {
			return c < 0
		}
		return newer(rows[i], rows[j])
	})

	out := make([]*models.Game, len(rows))
	for i, mg := range rows {
		out[i] = mg.game.Clone()
	}
	return out, nil
}

func (s *GameMemoryStore) Replace(ctx context.Context, g *models.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mg, ok := s.games[g.ID]
	if !ok {
		return ErrNotFound
	}
	if mg.game.Status != g.Status {
		return ErrVersionConflict
	}
	mg.game = g.Clone()
	return nil
}

func (s *GameMemoryStore) Complete(ctx context.Context, id primitive.ObjectID, results []models.PlayerResult) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mg, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	if mg.game.Status != models.StatusActive {
		return nil, ErrVersionConflict
	}
	mg.game.Status = models.StatusCompleted
	mg.game.Results = append([]models.PlayerResult{}, results...)
	return mg.game.Clone(), nil
}

func (s *GameMemoryStore) DeleteInactive(ctx context.Context, gameID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, mg := range s.games {
		if mg.game.GameID == gameID && mg.game.Status != models.StatusActive {
			delete(s.games, id)
			n++
		}
	}
	return n, nil
}

func (s *GameMemoryStore) SetDescriptionIfEmpty(ctx context.Context, gameID, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, mg := range s.games {
		if mg.game.GameID == gameID && mg.game.Description == "" {
			mg.game.Description = description
			n++
		}
	}
	return n, nil
}

func (s *GameMemoryStore) ResetAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, mg := range s.games {
		mg.game.Status = models.StatusPending
		mg.game.PlayersInvolved = []string{}
		mg.game.Results = []models.PlayerResult{}
	}
	return int64(len(s.games)), nil
}

func (s *GameMemoryStore) Count(ctx context.Context, statuses ...models.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, mg := range s.games {
		if hasStatus(mg.game.Status, statuses) {
			n++
		}
	}
	return n, nil
}

type AdminMemoryStore struct {
	mu     sync.Mutex
	admins map[string]*models.Admin
}

func NewAdminMemoryStore() *AdminMemoryStore {
	return &AdminMemoryStore{admins: make(map[string]*models.Admin)}
}

func (s *AdminMemoryStore) Create(ctx context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.admins[a.Email]; ok {
		return ErrDuplicate
	}
	c := *a
	s.admins[a.Email] = &c
	return nil
}

func (s *AdminMemoryStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.admins[email]
	if !ok {
		return nil, ErrNotFound
	}
	c := *a
	return &c, nil
}

func (s *AdminMemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.admins)), nil
}
