package db

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultDBName = "arenax"

// ConnectToDB dials mongoURI and returns the database named in its path.
func ConnectToDB(ctx context.Context, mongoURI string) (*mongo.Database, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, fmt.Errorf("parse MongoDB URI: %w", err)
	}

	dbName := strings.TrimPrefix(uri.Path, "/")
	if dbName == "" {
		dbName = defaultDBName
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return client.Database(dbName), nil
}

func Disconnect(db *mongo.Database) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Errorf("MongoDB disconnect: %s", err)
	}
}

// legacyGameIDIndex is the unique index older deployments carried on games.gameId.
// It must go: several rows share a gameId.
const legacyGameIDIndex = "gameId_1"

// EnsureIndexes creates the indexes the stores rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := dropLegacyGameIndex(ctx, db.Collection("games")); err != nil {
		return err
	}
	if err := backfillPlayerVersion(ctx, db.Collection("players")); err != nil {
		return err
	}

	indexes := map[string][]mongo.IndexModel{
		"players": {
			{Keys: bson.D{{Key: "playerId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "points", Value: -1}, {Key: "gamesPlayed", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		"games": {
			{Keys: bson.D{{Key: "gameId", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		"admins": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// backfillPlayerVersion gives players written before versioning a version of
// 0 so compare-and-swap updates can match them.
func backfillPlayerVersion(ctx context.Context, players *mongo.Collection) error {
	res, err := players.UpdateMany(ctx,
		bson.M{"version": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"version": 0}},
	)
	if err != nil {
		return fmt.Errorf("backfill player versions: %w", err)
	}
	if res.ModifiedCount > 0 {
		log.Infof("backfilled version on %d players", res.ModifiedCount)
	}
	return nil
}

func dropLegacyGameIndex(ctx context.Context, games *mongo.Collection) error {
	cur, err := games.Indexes().List(ctx)
	if err != nil {
		return fmt.Errorf("list game indexes: %w", err)
	}
	defer cur.Close(ctx)

	var specs []struct {
		Name   string `bson:"name"`
		Unique bool   `bson:"unique"`
	}
	if err := cur.All(ctx, &specs); err != nil {
		return fmt.Errorf("decode game indexes: %w", err)
	}

	for _, s := range specs {
		if s.Name != legacyGameIDIndex || !s.Unique {
			continue
		}
		if _, err := games.Indexes().DropOne(ctx, s.Name); err != nil {
			var cmdErr mongo.CommandError
			if errors.As(err, &cmdErr) && cmdErr.Name == "IndexNotFound" {
				return nil
			}
			return fmt.Errorf("drop legacy index %s: %w", s.Name, err)
		}
		log.Infof("dropped legacy unique index %s on games", s.Name)
	}
	return nil
}
