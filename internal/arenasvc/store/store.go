package store

import (
	"context"
	"errors"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrVersionConflict means a conditional write lost against a concurrent one.
	ErrVersionConflict = errors.New("store: version conflict")
	ErrDuplicate       = errors.New("store: duplicate key")
)

// PlayerStore persists players. Update is a compare-and-swap on Player.Version.
type PlayerStore interface {
	NextPlayerSeq(ctx context.Context) (int64, error)
	EnsurePlayerSeqAtLeast(ctx context.Context, floor int64) error
	Create(ctx context.Context, p *models.Player) error
	GetByID(ctx context.Context, playerID string) (*models.Player, error)
	GetMany(ctx context.Context, playerIDs []string) ([]*models.Player, error)
	List(ctx context.Context) ([]*models.Player, error)
	Update(ctx context.Context, p *models.Player) error
	Delete(ctx context.Context, playerID string) error
	ResetAll(ctx context.Context, startingTokens int) (int64, error)
	Count(ctx context.Context) (int64, error)
	TotalPoints(ctx context.Context) (int64, error)
}

// GameStore persists the append-only log of game rows.
type GameStore interface {
	Insert(ctx context.Context, g *models.Game) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error)
	// Latest returns the most recent row for gameID, limited to statuses when given.
	Latest(ctx context.Context, gameID string, statuses ...models.Status) (*models.Game, error)
	// List returns every row ordered by gameId ascending, then timestamp descending.
	List(ctx context.Context) ([]*models.Game, error)
	// Replace overwrites a row whose status still matches g.Status, else ErrVersionConflict.
	Replace(ctx context.Context, g *models.Game) error
	// Complete moves an active row to completed with results. ErrVersionConflict if it is no longer active.
	Complete(ctx context.Context, id primitive.ObjectID, results []models.PlayerResult) (*models.Game, error)
	DeleteInactive(ctx context.Context, gameID string) (int64, error)
	SetDescriptionIfEmpty(ctx context.Context, gameID, description string) (int64, error)
	ResetAll(ctx context.Context) (int64, error)
	Count(ctx context.Context, statuses ...models.Status) (int64, error)
}

type AdminStore interface {
	Create(ctx context.Context, a *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Count(ctx context.Context) (int64, error)
}

var (
	_ PlayerStore = (*PlayerMongoStore)(nil)
	_ PlayerStore = (*PlayerMemoryStore)(nil)
	_ GameStore   = (*GameMongoStore)(nil)
	_ GameStore   = (*GameMemoryStore)(nil)
	_ AdminStore  = (*AdminMongoStore)(nil)
	_ AdminStore  = (*AdminMemoryStore)(nil)
)
