package repository

import (
	"context"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// SeatStore reads and writes seat-status records.  Implementations must
// make Reserve and Occupy conditional so concurrent callers cannot both
// succeed on the same seat.
type SeatStore interface {
	// Get returns the seat or ErrSeatNotFound.
	Get(ctx context.Context, seatID string) (*model.Seat, error)
	// ListByFloor returns the seats of a floor ordered by row and column.
	ListByFloor(ctx context.Context, floor int) ([]model.Seat, error)
	// Reserve places r on the seat if it is missing, available, or held
	// by a reservation that lapsed at r.ReservedAt (see model.Seat.Lapsed).
	// Otherwise ErrSeatUnavailable.
	Reserve(ctx context.Context, r model.Reservation) error
	// Occupy moves a seat held by userID to occupied and clears the
	// reservation fields.  Otherwise ErrInvalidReservation.
	Occupy(ctx context.Context, seatID, userID string, at time.Time) error
	// Release makes the seat available, returning ErrSeatNotFound when
	// it does not exist.
	Release(ctx context.Context, seatID string, at time.Time) error
	// CancelReservation releases the seat only when it is still held by
	// userID with the given reservedAt.  No error when nothing matched.
	CancelReservation(ctx context.Context, r model.Reservation, at time.Time) error
	// MarkExpiring flags reserved seats with now < expiresAt <= horizon
	// as expiring and returns how many changed.
	MarkExpiring(ctx context.Context, now, horizon time.Time) (int, error)
	// ReleaseExpired releases held seats whose reservation lapsed at now
	// and returns their ids.
	ReleaseExpired(ctx context.Context, now time.Time) ([]string, error)
	// Provision inserts the seats that do not exist yet and returns how
	// many were created.  Existing seats are left untouched.
	Provision(ctx context.Context, seats []model.Seat) (int, error)
}

// NonceStore records whether a one-time token was consumed.
type NonceStore interface {
	// Create stores n with Used=false.
	Create(ctx context.Context, n model.Nonce) error
	// Get returns the record or ErrNonceNotFound.
	Get(ctx context.Context, nonce string) (*model.Nonce, error)
	// MarkUsed flips Used from false to true.  It returns ErrNonceUsed
	// when already consumed and ErrNonceNotFound when absent.
	MarkUsed(ctx context.Context, nonce string, at time.Time) error
}
