package reservation

import "errors"

// Business-rule failures.  Each is rendered to the client with its own
// message; see handler.errorStatus.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrInvalidSeatID      = errors.New("invalid seat id")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpired            = errors.New("token expired")
	ErrAlreadyUsed        = errors.New("token already used")
	ErrInvalidReservation = errors.New("invalid seat reservation")
	ErrSeatUnavailable    = errors.New("seat already reserved")
	ErrSeatNotFound       = errors.New("seat not found")
	ErrForbidden          = errors.New("not allowed to release this seat")
)

// ErrStoreUnavailable wraps any infrastructure failure of the seat or
// nonce store.  The request fails as a whole; nothing is retried.
var ErrStoreUnavailable = errors.New("store unavailable")
