package model

import "time"

// SeatStatus is the lifecycle state of a seat.  A seat starts out
// available, becomes reserved when a capability token is issued for it,
// may be flagged expiring shortly before the reservation lapses, and
// becomes occupied once the holder checks in.
type SeatStatus string

const (
	StatusAvailable SeatStatus = "available"
	StatusReserved  SeatStatus = "reserved"
	StatusExpiring  SeatStatus = "expiring"
	StatusOccupied  SeatStatus = "occupied"
)

// IsHeld reports whether the status carries a live reservation.
func (s SeatStatus) IsHeld() bool {
	return s == StatusReserved || s == StatusExpiring
}

// Valid reports whether s is one of the known statuses.
func (s SeatStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusExpiring, StatusOccupied:
		return true
	}
	return false
}

// Seat describes a reservable seat on a library floor.  Seats are
// identified by a composite id built from floor, row and column (see
// SeatID).  This struct is the document stored in the `seats`
// collection and the row shape of the `seats` table.
//
// Fields:
//  ID         – composite identifier, e.g. "1F-A1".
//  Floor      – floor number (1-based).
//  Row        – row letter(s), e.g. A, B, AA.
//  Column     – position in the row (1-based).
//  Status     – lifecycle state.
//  ReservedBy – user holding the reservation; set iff status is reserved or expiring.
//  ReservedAt – when the reservation was made.
//  ExpiresAt  – when the reservation lapses.
//  OccupiedBy – user sitting in the seat; set iff status is occupied.
//  OccupiedAt – when the seat was occupied.
type Seat struct {
	ID         string     `json:"id" bson:"_id"`
	Floor      int        `json:"floor" bson:"floor"`
	Row        string     `json:"row" bson:"row"`
	Column     int        `json:"column" bson:"column"`
	Status     SeatStatus `json:"status" bson:"status"`
	ReservedBy string     `json:"reservedBy,omitempty" bson:"reservedBy,omitempty"`
	ReservedAt *time.Time `json:"reservedAt,omitempty" bson:"reservedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty" bson:"expiresAt,omitempty"`
	OccupiedBy string     `json:"occupiedBy,omitempty" bson:"occupiedBy,omitempty"`
	OccupiedAt *time.Time `json:"occupiedAt,omitempty" bson:"occupiedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// LapseCutoff is the instant before which a reservation expiry counts as
// lapsed at now.  Expiries are whole seconds and a token stays valid
// during the second named by its exp claim, so a reservation lapses once
// expiresAt < now truncated to the second.
func LapseCutoff(now time.Time) time.Time {
	return now.Truncate(time.Second)
}

// Lapsed reports whether the seat's reservation has run out at now.
func (s *Seat) Lapsed(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(LapseCutoff(now))
}

// Reservable reports whether a new reservation may be placed on the seat
// at time now.  Available seats are reservable, and so are held seats
// whose reservation has already lapsed but not yet been swept.
func (s *Seat) Reservable(now time.Time) bool {
	if s.Status == StatusAvailable {
		return true
	}
	return s.Status.IsHeld() && s.Lapsed(now)
}

// HeldBy reports whether userID holds a live reservation on the seat.
func (s *Seat) HeldBy(userID string) bool {
	return s.Status.IsHeld() && s.ReservedBy == userID
}

// Reset clears every reservation and occupancy field and marks the seat
// available.
func (s *Seat) Reset(at time.Time) {
	s.Status = StatusAvailable
	s.ReservedBy = ""
	s.ReservedAt = nil
	s.ExpiresAt = nil
	s.OccupiedBy = ""
	s.OccupiedAt = nil
	s.UpdatedAt = at
}
