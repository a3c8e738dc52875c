package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatID(t *testing.T) {
	assert.Equal(t, "1F-A1", SeatID(1, "a", 1))
	assert.Equal(t, "12F-AB30", SeatID(12, "AB", 30))
	assert.Equal(t, "1F-A1", FloorSeatID(" 1f", "a1 "))
}

func TestParseSeatID(t *testing.T) {
	floor, row, col, err := ParseSeatID("3F-C12")
	require.NoError(t, err)
	assert.Equal(t, 3, floor)
	assert.Equal(t, "C", row)
	assert.Equal(t, 12, col)

	for _, bad := range []string{"", "floor1-A1", "0F-A1", "1F-A0", "1F-a1", "1F-ABC1", "1F_A1"} {
		_, _, _, err := ParseSeatID(bad)
		assert.ErrorIs(t, err, ErrInvalidSeatID, bad)
		assert.False(t, IsSeatID(bad), bad)
	}
}

func TestRowLabel(t *testing.T) {
	cases := map[int]string{0: "A", 9: "J", 25: "Z", 26: "AA", 27: "AB", -1: ""}
	for in, want := range cases {
		assert.Equal(t, want, RowLabel(in))
	}
}

func TestFloorLayout(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seats := FloorLayout(5, 10, 10, at)
	require.Len(t, seats, 500)
	assert.Equal(t, "1F-A1", seats[0].ID)
	assert.Equal(t, "5F-J10", seats[len(seats)-1].ID)
	for _, s := range seats {
		assert.Equal(t, StatusAvailable, s.Status)
		assert.True(t, IsSeatID(s.ID), s.ID)
	}
	assert.Nil(t, FloorLayout(0, 1, 1, at))
}

func TestSeatReservable(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Seat{Status: StatusAvailable}).Reservable(now))
	assert.False(t, (&Seat{Status: StatusReserved, ExpiresAt: &future}).Reservable(now))
	assert.True(t, (&Seat{Status: StatusReserved, ExpiresAt: &past}).Reservable(now))
	assert.False(t, (&Seat{Status: StatusExpiring, ExpiresAt: &now}).Reservable(now.Add(999*time.Millisecond)))
	assert.True(t, (&Seat{Status: StatusExpiring, ExpiresAt: &now}).Reservable(now.Add(time.Second)))
	assert.False(t, (&Seat{Status: StatusOccupied}).Reservable(now))
}
