package model

import "time"

// Reservation is the hold placed on a seat by a user.  It is what the
// seat store writes when a capability token is issued.
//
// Fields:
//  SeatID     – seat being reserved.
//  UserID     – user placing the reservation.
//  ReservedAt – issue time of the token.
//  ExpiresAt  – ReservedAt plus the validity window.
type Reservation struct {
	SeatID     string
	UserID     string
	ReservedAt time.Time
	ExpiresAt  time.Time
}
