package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id          VARCHAR(16)  NOT NULL,
		floor       INT          NOT NULL,
		row_label   VARCHAR(4)   NOT NULL,
		col         INT          NOT NULL,
		status      ENUM('available','reserved','expiring','occupied') NOT NULL DEFAULT 'available',
		reserved_by VARCHAR(255) NULL,
		reserved_at DATETIME(3)  NULL,
		expires_at  DATETIME(3)  NULL,
		occupied_by VARCHAR(255) NULL,
		occupied_at DATETIME(3)  NULL,
		created_at  DATETIME(3)  NOT NULL,
		updated_at  DATETIME(3)  NOT NULL,
		PRIMARY KEY (id),
		KEY idx_seats_floor (floor),
		KEY idx_seats_status_expires (status, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS one_time_tokens (
		nonce      CHAR(64)     NOT NULL,
		seat_id    VARCHAR(16)  NOT NULL,
		user_id    VARCHAR(255) NOT NULL,
		created_at DATETIME(3)  NOT NULL,
		used       TINYINT(1)   NOT NULL DEFAULT 0,
		used_at    DATETIME(3)  NULL,
		PRIMARY KEY (nonce),
		KEY idx_tokens_seat (seat_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the seats and one_time_tokens tables when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
