package model

import "time"

// Nonce records a one-time token issued alongside a capability token.
// Used transitions from false to true exactly once, when the holder
// occupies the seat.  Records live in the `usedTokens` collection (or
// the `one_time_tokens` table) keyed by the nonce itself.
type Nonce struct {
	Nonce     string     `json:"oneTimeToken" bson:"_id"`
	SeatID    string     `json:"seatId" bson:"seatId"`
	UserID    string     `json:"userId" bson:"userId"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	Used      bool       `json:"used" bson:"used"`
	UsedAt    *time.Time `json:"usedAt,omitempty" bson:"usedAt,omitempty"`
}
