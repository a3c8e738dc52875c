package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func reservation(seatID, userID string, at time.Time) model.Reservation {
	return model.Reservation{SeatID: seatID, UserID: userID, ReservedAt: at, ExpiresAt: at.Add(2 * time.Hour)}
}

func TestMemorySeatReserveUpsertsMissingSeat(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()

	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u1", t0)))

	seat, err := repo.Get(ctx, "1F-A1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusReserved, seat.Status)
	assert.Equal(t, "u1", seat.ReservedBy)
	assert.Equal(t, 1, seat.Floor)
	assert.Equal(t, "A", seat.Row)
	assert.Equal(t, 1, seat.Column)
	require.NotNil(t, seat.ExpiresAt)
	assert.Equal(t, t0.Add(2*time.Hour), *seat.ExpiresAt)
}

func TestMemorySeatReserveRejectsLiveReservation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()
	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u1", t0)))

	err := repo.Reserve(ctx, reservation("1F-A1", "u2", t0.Add(time.Minute)))
	assert.ErrorIs(t, err, ErrSeatUnavailable)

	// a lapsed reservation can be taken over
	assert.ErrorIs(t, repo.Reserve(ctx, reservation("1F-A1", "u2", t0.Add(2*time.Hour))), ErrSeatUnavailable)
	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u2", t0.Add(2*time.Hour+time.Second))))
	seat, err := repo.Get(ctx, "1F-A1")
	require.NoError(t, err)
	assert.Equal(t, "u2", seat.ReservedBy)
}

func TestMemorySeatConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()

	const callers = 32
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Reserve(ctx, reservation("2F-B3", "user", t0))
			switch err {
			case nil:
				wins.Add(1)
			case ErrSeatUnavailable:
				losses.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, callers-1, losses.Load())
}

func TestMemorySeatOccupy(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()
	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u1", t0)))

	assert.ErrorIs(t, repo.Occupy(ctx, "1F-A1", "u2", t0), ErrInvalidReservation)
	assert.ErrorIs(t, repo.Occupy(ctx, "9F-Z9", "u1", t0), ErrInvalidReservation)
	require.NoError(t, repo.Occupy(ctx, "1F-A1", "u1", t0.Add(time.Minute)))

	seat, err := repo.Get(ctx, "1F-A1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusOccupied, seat.Status)
	assert.Equal(t, "u1", seat.OccupiedBy)
	assert.Empty(t, seat.ReservedBy)
	assert.Nil(t, seat.ExpiresAt)

	assert.ErrorIs(t, repo.Occupy(ctx, "1F-A1", "u1", t0), ErrInvalidReservation)
	assert.ErrorIs(t, repo.Reserve(ctx, reservation("1F-A1", "u2", t0.Add(5*time.Hour))), ErrSeatUnavailable)
}

func TestMemorySeatReleaseAndCancel(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()
	assert.ErrorIs(t, repo.Release(ctx, "1F-A1", t0), ErrSeatNotFound)

	res := reservation("1F-A1", "u1", t0)
	require.NoError(t, repo.Reserve(ctx, res))

	// a cancel for a different reservation is a no-op
	require.NoError(t, repo.CancelReservation(ctx, reservation("1F-A1", "u1", t0.Add(time.Second)), t0))
	seat, _ := repo.Get(ctx, "1F-A1")
	assert.Equal(t, model.StatusReserved, seat.Status)

	require.NoError(t, repo.CancelReservation(ctx, res, t0))
	seat, _ = repo.Get(ctx, "1F-A1")
	assert.Equal(t, model.StatusAvailable, seat.Status)

	require.NoError(t, repo.Reserve(ctx, res))
	require.NoError(t, repo.Occupy(ctx, "1F-A1", "u1", t0))
	require.NoError(t, repo.Release(ctx, "1F-A1", t0))
	seat, _ = repo.Get(ctx, "1F-A1")
	assert.Equal(t, model.StatusAvailable, seat.Status)
	assert.Empty(t, seat.OccupiedBy)
}

func TestMemorySeatExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()
	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u1", t0)))
	require.NoError(t, repo.Reserve(ctx, reservation("1F-A2", "u2", t0.Add(time.Hour))))

	now := t0.Add(2*time.Hour - 5*time.Minute)
	n, err := repo.MarkExpiring(ctx, now, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	seat, _ := repo.Get(ctx, "1F-A1")
	assert.Equal(t, model.StatusExpiring, seat.Status)

	ids, err := repo.ReleaseExpired(ctx, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = repo.ReleaseExpired(ctx, t0.Add(2*time.Hour+time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"1F-A1"}, ids)
	seat, _ = repo.Get(ctx, "1F-A2")
	assert.Equal(t, model.StatusReserved, seat.Status)
}

func TestMemorySeatProvisionAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySeatRepo()

	n, err := repo.Provision(ctx, model.FloorLayout(2, 27, 2, t0))
	require.NoError(t, err)
	assert.Equal(t, 2*27*2, n)

	require.NoError(t, repo.Reserve(ctx, reservation("1F-A1", "u1", t0)))
	n, err = repo.Provision(ctx, model.FloorLayout(2, 27, 2, t0))
	require.NoError(t, err)
	assert.Zero(t, n)

	seats, err := repo.ListByFloor(ctx, 1)
	require.NoError(t, err)
	require.Len(t, seats, 54)
	assert.Equal(t, "1F-A1", seats[0].ID)
	assert.Equal(t, model.StatusReserved, seats[0].Status)
	assert.Equal(t, "1F-Z2", seats[51].ID)
	assert.Equal(t, "1F-AA1", seats[52].ID)

	empty, err := repo.ListByFloor(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryNonceLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNonceRepo()

	_, err := repo.Get(ctx, "n1")
	assert.ErrorIs(t, err, ErrNonceNotFound)
	assert.ErrorIs(t, repo.MarkUsed(ctx, "n1", t0), ErrNonceNotFound)

	require.NoError(t, repo.Create(ctx, model.Nonce{Nonce: "n1", SeatID: "1F-A1", UserID: "u1", CreatedAt: t0, Used: true}))
	assert.ErrorIs(t, repo.Create(ctx, model.Nonce{Nonce: "n1"}), ErrNonceExists)

	n, err := repo.Get(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, n.Used)

	require.NoError(t, repo.MarkUsed(ctx, "n1", t0))
	assert.ErrorIs(t, repo.MarkUsed(ctx, "n1", t0), ErrNonceUsed)

	n, err = repo.Get(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.Used)
	require.NotNil(t, n.UsedAt)
}

func TestMemoryNonceMarkUsedOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryNonceRepo()
	require.NoError(t, repo.Create(ctx, model.Nonce{Nonce: "n1", CreatedAt: t0}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.MarkUsed(ctx, "n1", t0) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
}

func TestDecodeRedisNonce(t *testing.T) {
	_, err := decodeNonce("n1", map[string]string{})
	assert.ErrorIs(t, err, ErrNonceNotFound)

	n, err := decodeNonce("n1", map[string]string{
		"seatId":    "1F-A1",
		"userId":    "u1",
		"createdAt": t0.Format(time.RFC3339Nano),
		"used":      "1",
		"usedAt":    t0.Add(time.Minute).Format(time.RFC3339Nano),
	})
	require.NoError(t, err)
	assert.Equal(t, "1F-A1", n.SeatID)
	assert.True(t, n.Used)
	assert.True(t, n.CreatedAt.Equal(t0))
	require.NotNil(t, n.UsedAt)

	_, err = decodeNonce("n1", map[string]string{"createdAt": "yesterday", "used": "0"})
	assert.Error(t, err)
}

func TestLostRace(t *testing.T) {
	assert.False(t, lostRace(nil))
	assert.False(t, lostRace(assert.AnError))
	assert.True(t, lostRace(fmt.Errorf("insert: %w", &mysql.MySQLError{Number: 1062})))
	assert.True(t, lostRace(&mysql.MySQLError{Number: 1213}))
	assert.False(t, lostRace(&mysql.MySQLError{Number: 1146}))
}

// seatRow feeds scanSeat the columns of one seats row.
type seatRow struct {
	status string
}

func (r seatRow) Scan(dest ...any) error {
	*dest[0].(*string) = "1F-A1"
	*dest[1].(*int) = 1
	*dest[2].(*string) = "A"
	*dest[3].(*int) = 1
	*dest[4].(*string) = r.status
	*dest[10].(*time.Time) = t0
	*dest[11].(*time.Time) = t0
	return nil
}

func TestScanSeatRejectsUnknownStatus(t *testing.T) {
	s, err := scanSeat(seatRow{status: "available"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, s.Status)
	assert.Nil(t, s.ReservedAt)

	_, err = scanSeat(seatRow{status: "booked"})
	assert.ErrorContains(t, err, `unknown status "booked"`)
}
