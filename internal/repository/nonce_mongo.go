package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// MongoNonceRepo stores one-time tokens in the `usedTokens` collection.
type MongoNonceRepo struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoNonceRepo binds the repo to db.
func NewMongoNonceRepo(db *mongo.Database, timeout time.Duration) *MongoNonceRepo {
	return &MongoNonceRepo{collection: db.Collection(NoncesCollection), timeout: timeout}
}

func (r *MongoNonceRepo) Create(ctx context.Context, n model.Nonce) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	n.Used = false
	n.UsedAt = nil
	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrNonceExists
		}
		return fmt.Errorf("failed to create nonce: %w", err)
	}
	return nil
}

func (r *MongoNonceRepo) Get(ctx context.Context, nonce string) (*model.Nonce, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var n model.Nonce
	if err := r.collection.FindOne(ctx, bson.M{"_id": nonce}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNonceNotFound
		}
		return nil, fmt.Errorf("failed to find nonce: %w", err)
	}
	return &n, nil
}

// MarkUsed only matches unused records, so of two concurrent callers at
// most one sees MatchedCount == 1.
func (r *MongoNonceRepo) MarkUsed(ctx context.Context, nonce string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": nonce, "used": false},
		bson.M{"$set": bson.M{"used": true, "usedAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	if result.MatchedCount == 1 {
		return nil
	}
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": nonce})
	if err != nil {
		return fmt.Errorf("failed to find nonce: %w", err)
	}
	if count == 0 {
		return ErrNonceNotFound
	}
	return ErrNonceUsed
}
