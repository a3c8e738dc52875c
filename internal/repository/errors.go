// Package repository defines the seat and nonce stores and their
// adapters.  The sentinel errors below are shared by every adapter so the
// reservation service can tell business-rule failures apart from
// infrastructure failures.
package repository

import "errors"

// ErrSeatNotFound is returned when a seat lookup yields no record.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatUnavailable is returned by Reserve when the seat is occupied or
// carries a live reservation.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrInvalidReservation is returned by Occupy when the seat is not held by
// the given user.
var ErrInvalidReservation = errors.New("invalid seat reservation")

// ErrNonceNotFound is returned when no record exists for a nonce.
var ErrNonceNotFound = errors.New("nonce not found")

// ErrNonceUsed is returned by MarkUsed when the nonce was already consumed.
var ErrNonceUsed = errors.New("nonce already used")

// ErrNonceExists is returned by Create when the nonce is already recorded.
var ErrNonceExists = errors.New("nonce already exists")
