package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

var heldStatuses = bson.A{model.StatusReserved, model.StatusExpiring}

// MongoSeatRepo stores seats in the `seats` collection.
type MongoSeatRepo struct {
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoSeatRepo binds the repo to db.  timeout bounds every call.
func NewMongoSeatRepo(db *mongo.Database, timeout time.Duration) *MongoSeatRepo {
	return &MongoSeatRepo{collection: db.Collection(SeatsCollection), timeout: timeout}
}

func (r *MongoSeatRepo) Get(ctx context.Context, seatID string) (*model.Seat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var seat model.Seat
	if err := r.collection.FindOne(ctx, bson.M{"_id": seatID}).Decode(&seat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to find seat: %w", err)
	}
	return &seat, nil
}

func (r *MongoSeatRepo) ListByFloor(ctx context.Context, floor int) ([]model.Seat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"floor": floor})
	if err != nil {
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	defer cursor.Close(ctx)

	seats := make([]model.Seat, 0)
	if err := cursor.All(ctx, &seats); err != nil {
		return nil, fmt.Errorf("failed to decode seats: %w", err)
	}
	sortSeats(seats)
	return seats, nil
}

// Reserve upserts the reservation behind a filter that only matches
// reservable seats.  When the seat exists but does not match, the upsert
// collides on _id and the duplicate key error means another holder won.
func (r *MongoSeatRepo) Reserve(ctx context.Context, res model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"_id": res.SeatID,
		"$or": bson.A{
			bson.M{"status": model.StatusAvailable},
			bson.M{"status": bson.M{"$in": heldStatuses}, "expiresAt": bson.M{"$lt": model.LapseCutoff(res.ReservedAt)}},
		},
	}
	onInsert := bson.M{"createdAt": res.ReservedAt}
	if floor, row, column, err := model.ParseSeatID(res.SeatID); err == nil {
		onInsert["floor"] = floor
		onInsert["row"] = row
		onInsert["column"] = column
	}
	update := bson.M{
		"$set": bson.M{
			"status":     model.StatusReserved,
			"reservedBy": res.UserID,
			"reservedAt": res.ReservedAt,
			"expiresAt":  res.ExpiresAt,
			"updatedAt":  res.ReservedAt,
		},
		"$unset":       bson.M{"occupiedBy": "", "occupiedAt": ""},
		"$setOnInsert": onInsert,
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrSeatUnavailable
		}
		return fmt.Errorf("failed to reserve seat: %w", err)
	}
	return nil
}

func (r *MongoSeatRepo) Occupy(ctx context.Context, seatID, userID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"_id": seatID, "status": bson.M{"$in": heldStatuses}, "reservedBy": userID}
	update := bson.M{
		"$set": bson.M{
			"status":     model.StatusOccupied,
			"occupiedBy": userID,
			"occupiedAt": at,
			"updatedAt":  at,
		},
		"$unset": bson.M{"reservedBy": "", "reservedAt": "", "expiresAt": ""},
	}
	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to occupy seat: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrInvalidReservation
	}
	return nil
}

func (r *MongoSeatRepo) Release(ctx context.Context, seatID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": seatID}, releaseUpdate(at))
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrSeatNotFound
	}
	return nil
}

func (r *MongoSeatRepo) CancelReservation(ctx context.Context, res model.Reservation, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"_id":        res.SeatID,
		"status":     bson.M{"$in": heldStatuses},
		"reservedBy": res.UserID,
		"reservedAt": res.ReservedAt,
	}
	if _, err := r.collection.UpdateOne(ctx, filter, releaseUpdate(at)); err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	return nil
}

func (r *MongoSeatRepo) MarkExpiring(ctx context.Context, now, horizon time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{
		"status":    model.StatusReserved,
		"expiresAt": bson.M{"$gt": now, "$lte": horizon},
	}
	update := bson.M{"$set": bson.M{"status": model.StatusExpiring, "updatedAt": now}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to mark expiring seats: %w", err)
	}
	return int(result.ModifiedCount), nil
}

func (r *MongoSeatRepo) ReleaseExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"status": bson.M{"$in": heldStatuses}, "expiresAt": bson.M{"$lt": model.LapseCutoff(now)}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to find expired seats: %w", err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode expired seats: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	// the status condition is repeated so a seat re-reserved in between
	// is left alone
	filter["_id"] = bson.M{"$in": ids}
	if _, err := r.collection.UpdateMany(ctx, filter, releaseUpdate(now)); err != nil {
		return nil, fmt.Errorf("failed to release expired seats: %w", err)
	}
	return ids, nil
}

func (r *MongoSeatRepo) Provision(ctx context.Context, seats []model.Seat) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	models := make([]mongo.WriteModel, 0, len(seats))
	for _, s := range seats {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": s.ID}).
			SetUpdate(bson.M{"$setOnInsert": bson.M{
				"floor":     s.Floor,
				"row":       s.Row,
				"column":    s.Column,
				"status":    s.Status,
				"createdAt": s.CreatedAt,
				"updatedAt": s.UpdatedAt,
			}}).
			SetUpsert(true))
	}
	result, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("failed to provision seats: %w", err)
	}
	return int(result.UpsertedCount), nil
}

// EnsureIndexes creates the secondary indexes used by floor listings and
// the expiry sweep.
func (r *MongoSeatRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "floor", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create seat indexes: %w", err)
	}
	return nil
}

func releaseUpdate(at time.Time) bson.M {
	return bson.M{
		"$set": bson.M{"status": model.StatusAvailable, "updatedAt": at},
		"$unset": bson.M{
			"reservedBy": "",
			"reservedAt": "",
			"expiresAt":  "",
			"occupiedBy": "",
			"occupiedAt": "",
		},
	}
}
