package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/arenax-services/internal/arenasvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const AdminsCollection = "admins"

type AdminMongoStore struct {
	admins *mongo.Collection
}

func NewAdminStore(db *mongo.Database) *AdminMongoStore {
	return &AdminMongoStore{admins: db.Collection(AdminsCollection)}
}

func (s *AdminMongoStore) Create(ctx context.Context, a *models.Admin) error {
	if _, err := s.admins.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *AdminMongoStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	a := &models.Admin{}
	err := s.admins.FindOne(ctx, bson.M{"email": email}).Decode(a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get admin: %w", err)
	}
	return a, nil
}

func (s *AdminMongoStore) Count(ctx context.Context) (int64, error) {
	n, err := s.admins.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}
