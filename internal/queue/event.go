// Package queue defines the seat event payload exchanged over the message
// broker and the consumer that records it.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a seat state change.
type EventType string

const (
	SeatReserved EventType = "seat.reserved"
	SeatOccupied EventType = "seat.occupied"
	SeatReleased EventType = "seat.released"
	SeatExpired  EventType = "seat.expired"
)

// SeatEvent is published after a seat changes state.  It carries enough
// for downstream consumers to log or notify without reading the store.
type SeatEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	SeatID     string    `json:"seatId"`
	UserID     string    `json:"userId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewSeatEvent stamps a new event with a random id.
func NewSeatEvent(typ EventType, seatID, userID string, at time.Time) SeatEvent {
	return SeatEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		SeatID:     seatID,
		UserID:     userID,
		OccurredAt: at.UTC(),
	}
}
