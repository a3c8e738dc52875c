package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/library-seat-reservation/internal/model"
)

// SQLNonceRepo persists one-time tokens in the `one_time_tokens` table.
type SQLNonceRepo struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSQLNonceRepo(db *sql.DB, timeout time.Duration) *SQLNonceRepo {
	return &SQLNonceRepo{db: db, timeout: timeout}
}

// Create inserts an unused nonce row.
func (r *SQLNonceRepo) Create(ctx context.Context, n model.Nonce) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO one_time_tokens (nonce, seat_id, user_id, created_at, used) VALUES (?,?,?,?,0)",
		n.Nonce, n.SeatID, n.UserID, n.CreatedAt.UTC())
	if err != nil {
		if mysqlErrorNumber(err) == mysqlDuplicateEntry {
			return ErrNonceExists
		}
		return fmt.Errorf("failed to create nonce: %w", err)
	}
	return nil
}

func (r *SQLNonceRepo) Get(ctx context.Context, nonce string) (*model.Nonce, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var (
		n      model.Nonce
		usedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT nonce, seat_id, user_id, created_at, used, used_at FROM one_time_tokens WHERE nonce=? LIMIT 1",
		nonce).Scan(&n.Nonce, &n.SeatID, &n.UserID, &n.CreatedAt, &n.Used, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNonceNotFound
		}
		return nil, fmt.Errorf("failed to find nonce: %w", err)
	}
	if usedAt.Valid {
		n.UsedAt = &usedAt.Time
	}
	return &n, nil
}

// MarkUsed flips used only where it is still 0, so one caller wins.
func (r *SQLNonceRepo) MarkUsed(ctx context.Context, nonce string, at time.Time) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		"UPDATE one_time_tokens SET used=1, used_at=? WHERE nonce=? AND used=0",
		at.UTC(), nonce)
	if err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to mark nonce used: %w", err)
	} else if n == 1 {
		return nil
	}
	var used bool
	err = r.db.QueryRowContext(ctx, "SELECT used FROM one_time_tokens WHERE nonce=?", nonce).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNonceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find nonce: %w", err)
	}
	return ErrNonceUsed
}
