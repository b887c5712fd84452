package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytq/internal/shared"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NextSessionSequence claims the next session sequence number through q. Called inside a
// transaction, the number is only consumed if the transaction commits.
func NextSessionSequence(ctx context.Context, q queryer) (int, error) {
	var sequence int
	err := q.QueryRowContext(ctx, "UPDATE sessions_sequence SET value = value + 1 WHERE id = 1 RETURNING value").Scan(&sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: sessions_sequence has no counter row", shared.ErrInvalidConfig)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment session sequence: %w", err)
	}
	return sequence, nil
}

// sessionMeta returns the sequence and creation time of a stored session.
func sessionMeta(ctx context.Context, q queryer, sessionID string) (int, time.Time, error) {
	var (
		sequence  int
		createdAt time.Time
	)
	err := q.QueryRowContext(ctx, "SELECT sequence, created_at FROM sessions WHERE id = ?", sessionID).Scan(&sequence, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to look up session: %w", err)
	}
	return sequence, createdAt, nil
}
