package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	PlayersCollection  = "players"
	CountersCollection = "counters"
	playerSeqKey       = "playerId"
)

type PlayerMongoStore struct {
	players  *mongo.Collection
	counters *mongo.Collection
}

func NewPlayerStore(db *mongo.Database) *PlayerMongoStore {
	return &PlayerMongoStore{
		players:  db.Collection(PlayersCollection),
		counters: db.Collection(CountersCollection),
	}
}

func (s *PlayerMongoStore) NextPlayerSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}

	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": playerSeqKey},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next player seq: %w", err)
	}

	return counter.Seq, nil
}

func (s *PlayerMongoStore) EnsurePlayerSeqAtLeast(ctx context.Context, floor int64) error {
	_, err := s.counters.UpdateOne(ctx,
		bson.M{"_id": playerSeqKey},
		bson.M{"$max": bson.M{"seq": floor}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("sync player seq: %w", err)
	}
	return nil
}

func (s *PlayerMongoStore) Create(ctx context.Context, p *models.Player) error {
	if _, err := s.players.InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert player %s: %w", p.PlayerID, err)
	}
	return nil
}

func (s *PlayerMongoStore) GetByID(ctx context.Context, playerID string) (*models.Player, error) {
	p := &models.Player{}
	err := s.players.FindOne(ctx, bson.M{"playerId": playerID}).Decode(p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get player %s: %w", playerID, err)
	}
	return p, nil
}

func (s *PlayerMongoStore) GetMany(ctx context.Context, playerIDs []string) ([]*models.Player, error) {
	return s.find(ctx, bson.M{"playerId": bson.M{"$in": playerIDs}})
}

func (s *PlayerMongoStore) List(ctx context.Context) ([]*models.Player, error) {
	return s.find(ctx, bson.M{})
}

func (s *PlayerMongoStore) find(ctx context.Context, filter bson.M) ([]*models.Player, error) {
	cur, err := s.players.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find players: %w", err)
	}
	defer cur.Close(ctx)

	players := []*models.Player{}
	if err := cur.All(ctx, &players); err != nil {
		return nil, fmt.Errorf("decode players: %w", err)
	}
	return players, nil
}

// versionFilter matches playerID at version expected. Documents from before
// versioning have no version field and count as version 0.
func versionFilter(playerID string, expected int64) bson.M {
	if expected == 0 {
		return bson.M{
			"playerId": playerID,
			"$or": bson.A{
				bson.M{"version": 0},
				bson.M{"version": bson.M{"$exists": false}},
			},
		}
	}
	return bson.M{"playerId": playerID, "version": expected}
}

// Update replaces the document only if nobody wrote it since p was read.
func (s *PlayerMongoStore) Update(ctx context.Context, p *models.Player) error {
	expected := p.Version
	p.Version++

	res, err := s.players.ReplaceOne(ctx, versionFilter(p.PlayerID, expected), p)
	if err != nil {
		p.Version = expected
		return fmt.Errorf("update player %s: %w", p.PlayerID, err)
	}
	if res.MatchedCount == 0 {
		p.Version = expected
		return ErrVersionConflict
	}
	return nil
}

func (s *PlayerMongoStore) Delete(ctx context.Context, playerID string) error {
	res, err := s.players.DeleteOne(ctx, bson.M{"playerId": playerID})
	if err != nil {
		return fmt.Errorf("delete player %s: %w", playerID, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PlayerMongoStore) ResetAll(ctx context.Context, startingTokens int) (int64, error) {
	res, err := s.players.UpdateMany(ctx, bson.M{}, bson.M{
		"$set": bson.M{
			"tokens":         startingTokens,
			"points":         0,
			"gamesPlayed":    0,
			"opponentsFaced": bson.A{},
			"gameHistory":    bson.A{},
			"openAttempts":   bson.A{},
		},
		"$inc": bson.M{"version": 1},
	})
	if err != nil {
		return 0, fmt.Errorf("reset players: %w", err)
	}
	return res.ModifiedCount, nil
}

func (s *PlayerMongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.players.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count players: %w", err)
	}
	return n, nil
}

func (s *PlayerMongoStore) TotalPoints(ctx context.Context) (int64, error) {
	cur, err := s.players.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$points"}}},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("sum points: %w", err)
	}
	defer cur.Close(ctx)

	var out []struct {
		Total int64 `bson:"total"`
	}
	if err := cur.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("decode points sum: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].Total, nil
}
