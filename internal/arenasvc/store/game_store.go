package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const GamesCollection = "games"

type GameMongoStore struct {
	games *mongo.Collection
}

func NewGameStore(db *mongo.Database) *GameMongoStore {
	return &GameMongoStore{games: db.Collection(GamesCollection)}
}

func (s *GameMongoStore) Insert(ctx context.Context, g *models.Game) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if _, err := s.games.InsertOne(ctx, g); err != nil {
		return fmt.Errorf("insert game %s: %w", g.GameID, err)
	}
	return nil
}

func (s *GameMongoStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Game, error) {
	g := &models.Game{}
	err := s.games.FindOne(ctx, bson.M{"_id": id}).Decode(g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get game %s: %w", id.Hex(), err)
	}
	return g, nil
}

func (s *GameMongoStore) Latest(ctx context.Context, gameID string, statuses ...models.Status) (*models.Game, error) {
	filter := bson.M{"gameId": gameID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	g := &models.Game{}
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	err := s.games.FindOne(ctx, filter, opts).Decode(g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("latest game %s: %w", gameID, err)
	}
	return g, nil
}

func (s *GameMongoStore) List(ctx context.Context) ([]*models.Game, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "gameId", Value: 1},
		{Key: "timestamp", Value: -1},
		{Key: "_id", Value: -1},
	})

	cur, err := s.games.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find games: %w", err)
	}
	defer cur.Close(ctx)

	games := []*models.Game{}
	if err := cur.All(ctx, &games); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return games, nil
}

func (s *GameMongoStore) Replace(ctx context.Context, g *models.Game) error {
	res, err := s.games.ReplaceOne(ctx, bson.M{"_id": g.ID, "status": g.Status}, g)
	if err != nil {
		return fmt.Errorf("replace game %s: %w", g.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		if _, err := s.GetByID(ctx, g.ID); err != nil {
			return err
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *GameMongoStore) Complete(ctx context.Context, id primitive.ObjectID, results []models.PlayerResult) (*models.Game, error) {
	g := &models.Game{}
	err := s.games.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusActive},
		bson.M{"$set": bson.M{"status": models.StatusCompleted, "results": results}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(g)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("complete game %s: %w", id.Hex(), err)
	}

	// nothing matched: either the row is gone or it already left active
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrVersionConflict
}

func (s *GameMongoStore) DeleteInactive(ctx context.Context, gameID string) (int64, error) {
	res, err := s.games.DeleteMany(ctx, bson.M{
		"gameId": gameID,
		"status": bson.M{"$ne": models.StatusActive},
	})
	if err != nil {
		return 0, fmt.Errorf("delete game %s: %w", gameID, err)
	}
	return res.DeletedCount, nil
}

func (s *GameMongoStore) SetDescriptionIfEmpty(ctx context.Context, gameID, description string) (int64, error) {
	res, err := s.games.UpdateMany(ctx,
		bson.M{
			"gameId": gameID,
			"$or": bson.A{
				bson.M{"description": ""},
				bson.M{"description": bson.M{"$exists": false}},
			},
		},
		bson.M{"$set": bson.M{"description": description}},
	)
	if err != nil {
		return 0, fmt.Errorf("backfill description %s: %w", gameID, err)
	}
	return res.ModifiedCount, nil
}

func (s *GameMongoStore) ResetAll(ctx context.Context) (int64, error) {
	res, err := s.games.UpdateMany(ctx, bson.M{}, bson.M{
		"$set": bson.M{
			"status":          models.StatusPending,
			"playersInvolved": bson.A{},
			"results":         bson.A{},
		},
	})
	if err != nil {
		return 0, fmt.Errorf("reset games: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *GameMongoStore) Count(ctx context.Context, statuses ...models.Status) (int64, error) {
	filter := bson.M{}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}

	n, err := s.games.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}
