package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// SQLSeatRepo stores seats in the MySQL `seats` table.
type SQLSeatRepo struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLSeatRepo constructs a SQLSeatRepo with the given DB handle.
func NewSQLSeatRepo(db *sql.DB, timeout time.Duration) *SQLSeatRepo {
	return &SQLSeatRepo{db: db, timeout: timeout}
}

const seatColumns = `id, floor, row_label, col, status, reserved_by, reserved_at, expires_at,
	occupied_by, occupied_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(row rowScanner) (model.Seat, error) {
	var (
		s                                 model.Seat
		status                            string
		reservedBy, occupiedBy            sql.NullString
		reservedAt, expiresAt, occupiedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Floor, &s.Row, &s.Column, &status, &reservedBy, &reservedAt,
		&expiresAt, &occupiedBy, &occupiedAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.Seat{}, err
	}
	s.Status = model.SeatStatus(status)
	if !s.Status.Valid() {
		return model.Seat{}, fmt.Errorf("seat %s: unknown status %q", s.ID, status)
	}
	s.ReservedBy = reservedBy.String
	s.OccupiedBy = occupiedBy.String
	if reservedAt.Valid {
		s.ReservedAt = &reservedAt.Time
	}
	if expiresAt.Valid {
		s.ExpiresAt = &expiresAt.Time
	}
	if occupiedAt.Valid {
		s.OccupiedAt = &occupiedAt.Time
	}
	return s, nil
}

func (r *SQLSeatRepo) Get(ctx context.Context, seatID string) (*model.Seat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	s, err := scanSeat(r.db.QueryRowContext(ctx, `SELECT `+seatColumns+` FROM seats WHERE id = ?`, seatID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSeatNotFound
		}
		return nil, fmt.Errorf("failed to find seat: %w", err)
	}
	return &s, nil
}

// ListByFloor retrieves all seats of a floor ordered by row label then column.
func (r *SQLSeatRepo) ListByFloor(ctx context.Context, floor int) ([]model.Seat, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE floor = ? ORDER BY CHAR_LENGTH(row_label), row_label, col`, floor)
	if err != nil {
		return nil, fmt.Errorf("failed to find seats: %w", err)
	}
	defer rows.Close()

	seats := make([]model.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

// Reserve locks the seat row and writes the reservation only when the seat
// is reservable.  A missing row is inserted; a concurrent insert of the
// same id fails with a duplicate entry and is reported as unavailable.
func (r *SQLSeatRepo) Reserve(ctx context.Context, res model.Reservation) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		seat, err := scanSeat(tx.QueryRowContext(ctx,
			`SELECT `+seatColumns+` FROM seats WHERE id = ? FOR UPDATE`, res.SeatID))
		switch {
		case errors.Is(err, sql.ErrNoRows):
			floor, row, column, _ := model.ParseSeatID(res.SeatID)
			_, err = tx.ExecContext(ctx,
				`INSERT INTO seats (id, floor, row_label, col, status, reserved_by, reserved_at, expires_at, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				res.SeatID, floor, row, column, model.StatusReserved, res.UserID,
				res.ReservedAt.UTC(), res.ExpiresAt.UTC(), res.ReservedAt.UTC(), res.ReservedAt.UTC())
			return err
		case err != nil:
			return err
		}
		if !seat.Reservable(res.ReservedAt) {
			return ErrSeatUnavailable
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE seats SET status = ?, reserved_by = ?, reserved_at = ?, expires_at = ?,
			        occupied_by = NULL, occupied_at = NULL, updated_at = ?
			 WHERE id = ?`,
			model.StatusReserved, res.UserID, res.ReservedAt.UTC(), res.ExpiresAt.UTC(), res.ReservedAt.UTC(), res.SeatID)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrSeatUnavailable), lostRace(err):
		return ErrSeatUnavailable
	default:
		return fmt.Errorf("failed to reserve seat: %w", err)
	}
}

func (r *SQLSeatRepo) Occupy(ctx context.Context, seatID, userID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET status = ?, occupied_by = ?, occupied_at = ?,
		        reserved_by = NULL, reserved_at = NULL, expires_at = NULL, updated_at = ?
		 WHERE id = ? AND status IN (?, ?) AND reserved_by = ?`,
		model.StatusOccupied, userID, at.UTC(), at.UTC(),
		seatID, model.StatusReserved, model.StatusExpiring, userID)
	if err != nil {
		return fmt.Errorf("failed to occupy seat: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to occupy seat: %w", err)
	} else if n == 0 {
		return ErrInvalidReservation
	}
	return nil
}

const releaseSet = `status = 'available', reserved_by = NULL, reserved_at = NULL, expires_at = NULL,
	occupied_by = NULL, occupied_at = NULL, updated_at = ?`

// Release makes the seat available.  The existence check runs separately
// because MySQL reports zero affected rows for a no-op update.
func (r *SQLSeatRepo) Release(ctx context.Context, seatID string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `UPDATE seats SET `+releaseSet+` WHERE id = ?`, at.UTC(), seatID)
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM seats WHERE id = ?`, seatID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSeatNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to release seat: %w", err)
	}
	return nil
}

func (r *SQLSeatRepo) CancelReservation(ctx context.Context, res model.Reservation, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`UPDATE seats SET `+releaseSet+`
		 WHERE id = ? AND status IN (?, ?) AND reserved_by = ? AND reserved_at = ?`,
		at.UTC(), res.SeatID, model.StatusReserved, model.StatusExpiring, res.UserID, res.ReservedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	return nil
}

func (r *SQLSeatRepo) MarkExpiring(ctx context.Context, now, horizon time.Time) (int, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET status = ?, updated_at = ?
		 WHERE status = ? AND expires_at > ? AND expires_at <= ?`,
		model.StatusExpiring, now.UTC(), model.StatusReserved, now.UTC(), horizon.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark expiring seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to mark expiring seats: %w", err)
	}
	return int(n), nil
}

// ReleaseExpired collects and releases lapsed reservations in one
// transaction so the returned ids match the rows changed.
func (r *SQLSeatRepo) ReleaseExpired(ctx context.Context, now time.Time) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var ids []string
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM seats WHERE status IN (?, ?) AND expires_at < ? ORDER BY id FOR UPDATE`,
			model.StatusReserved, model.StatusExpiring, model.LapseCutoff(now).UTC())
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		args := make([]any, 0, len(ids)+1)
		args = append(args, now.UTC())
		for _, id := range ids {
			args = append(args, id)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		_, err = tx.ExecContext(ctx, `UPDATE seats SET `+releaseSet+` WHERE id IN (`+placeholders+`)`, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to release expired seats: %w", err)
	}
	return ids, nil
}

// Provision inserts multiple seats in a single statement, skipping ids
// that already exist.
func (r *SQLSeatRepo) Provision(ctx context.Context, seats []model.Seat) (int, error) {
	if len(seats) == 0 {
		return 0, nil
	}
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var b strings.Builder
	b.WriteString(`INSERT IGNORE INTO seats (id, floor, row_label, col, status, created_at, updated_at) VALUES `)
	args := make([]any, 0, len(seats)*7)
	for i, s := range seats {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?)")
		args = append(args, s.ID, s.Floor, s.Row, s.Column, s.Status, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	}
	res, err := r.db.ExecContext(ctx, b.String(), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to provision seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to provision seats: %w", err)
	}
	return int(n), nil
}
