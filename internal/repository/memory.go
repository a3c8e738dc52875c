package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// MemorySeatRepo is a mutex guarded SeatStore used in development mode
// (STORE_DRIVER=memory) and by tests.
type MemorySeatRepo struct {
	mu    sync.Mutex
	seats map[string]model.Seat
}

// NewMemorySeatRepo returns an empty in-memory seat store.
func NewMemorySeatRepo() *MemorySeatRepo {
	return &MemorySeatRepo{seats: make(map[string]model.Seat)}
}

func (r *MemorySeatRepo) Get(_ context.Context, seatID string) (*model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok {
		return nil, ErrSeatNotFound
	}
	return &s, nil
}

func (r *MemorySeatRepo) ListByFloor(_ context.Context, floor int) ([]model.Seat, error) {
	r.mu.Lock()
	out := make([]model.Seat, 0)
	for _, s := range r.seats {
		if s.Floor == floor {
			out = append(out, s)
		}
	}
	r.mu.Unlock()
	sortSeats(out)
	return out, nil
}

func (r *MemorySeatRepo) Reserve(_ context.Context, res model.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[res.SeatID]
	if !ok {
		seat, err := model.NewSeat(res.SeatID, res.ReservedAt)
		if err != nil {
			// ids outside the floor convention are still stored as-is
			seat = model.Seat{ID: res.SeatID, Status: model.StatusAvailable, CreatedAt: res.ReservedAt}
		}
		s = seat
	} else if !s.Reservable(res.ReservedAt) {
		return ErrSeatUnavailable
	}
	s.Reset(res.ReservedAt)
	reservedAt, expiresAt := res.ReservedAt, res.ExpiresAt
	s.Status = model.StatusReserved
	s.ReservedBy = res.UserID
	s.ReservedAt = &reservedAt
	s.ExpiresAt = &expiresAt
	r.seats[res.SeatID] = s
	return nil
}

func (r *MemorySeatRepo) Occupy(_ context.Context, seatID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok || !s.HeldBy(userID) {
		return ErrInvalidReservation
	}
	s.Reset(at)
	s.Status = model.StatusOccupied
	s.OccupiedBy = userID
	s.OccupiedAt = &at
	r.seats[seatID] = s
	return nil
}

func (r *MemorySeatRepo) Release(_ context.Context, seatID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatID]
	if !ok {
		return ErrSeatNotFound
	}
	s.Reset(at)
	r.seats[seatID] = s
	return nil
}

func (r *MemorySeatRepo) CancelReservation(_ context.Context, res model.Reservation, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[res.SeatID]
	if !ok || !s.HeldBy(res.UserID) || s.ReservedAt == nil || !s.ReservedAt.Equal(res.ReservedAt) {
		return nil
	}
	s.Reset(at)
	r.seats[res.SeatID] = s
	return nil
}

func (r *MemorySeatRepo) MarkExpiring(_ context.Context, now, horizon time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.seats {
		if s.Status != model.StatusReserved || s.ExpiresAt == nil {
			continue
		}
		if s.ExpiresAt.After(now) && !s.ExpiresAt.After(horizon) {
			s.Status = model.StatusExpiring
			s.UpdatedAt = now
			r.seats[id] = s
			n++
		}
	}
	return n, nil
}

func (r *MemorySeatRepo) ReleaseExpired(_ context.Context, now time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, s := range r.seats {
		if s.Status.IsHeld() && s.Lapsed(now) {
			s.Reset(now)
			r.seats[id] = s
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemorySeatRepo) Provision(_ context.Context, seats []model.Seat) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range seats {
		if _, ok := r.seats[s.ID]; ok {
			continue
		}
		r.seats[s.ID] = s
		n++
	}
	return n, nil
}

// MemoryNonceRepo is a mutex guarded NonceStore.
type MemoryNonceRepo struct {
	mu     sync.Mutex
	nonces map[string]model.Nonce
}

// NewMemoryNonceRepo returns an empty in-memory nonce store.
func NewMemoryNonceRepo() *MemoryNonceRepo {
	return &MemoryNonceRepo{nonces: make(map[string]model.Nonce)}
}

func (r *MemoryNonceRepo) Create(_ context.Context, n model.Nonce) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.nonces[n.Nonce]; ok {
		return ErrNonceExists
	}
	n.Used = false
	n.UsedAt = nil
	r.nonces[n.Nonce] = n
	return nil
}

func (r *MemoryNonceRepo) Get(_ context.Context, nonce string) (*model.Nonce, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nonces[nonce]
	if !ok {
		return nil, ErrNonceNotFound
	}
	return &n, nil
}

func (r *MemoryNonceRepo) MarkUsed(_ context.Context, nonce string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nonces[nonce]
	if !ok {
		return ErrNonceNotFound
	}
	if n.Used {
		return ErrNonceUsed
	}
	n.Used = true
	n.UsedAt = &at
	r.nonces[nonce] = n
	return nil
}

// sortSeats orders seats by row label (shorter labels first) then column.
func sortSeats(seats []model.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if len(a.Row) != len(b.Row) {
			return len(a.Row) < len(b.Row)
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Column < b.Column
	})
}
