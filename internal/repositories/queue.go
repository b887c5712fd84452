package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytq/internal/models"
	"github.com/desertthunder/ytq/internal/shared"
)

// QueueRepository persists session queue snapshots.
type QueueRepository struct {
	db *sql.DB
}

// NewQueueRepository creates a new QueueRepository with the given database connection
func NewQueueRepository(db *sql.DB) *QueueRepository {
	return &QueueRepository{db: db}
}

// SaveSnapshot replaces the stored queue and flags of snap.SessionID.
//
// A new session is assigned the next sequence number. Sequence and timestamps are written back to snap.
func (r *QueueRepository) SaveSnapshot(ctx context.Context, snap *models.Snapshot) error {
	if snap.SessionID == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrInvalidInput)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, createdAt, err := sessionMeta(ctx, tx, snap.SessionID)
	switch {
	case errors.Is(err, shared.ErrSessionNotFound):
		if sequence, err = NextSessionSequence(ctx, tx); err != nil {
			return err
		}
		createdAt = time.Now().UTC()
	case err != nil:
		return err
	}
	updatedAt := time.Now().UTC()

	query := `
		INSERT INTO sessions (id, sequence, fairness, queue_loop, track_loop, auto_continue, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			fairness = excluded.fairness,
			queue_loop = excluded.queue_loop,
			track_loop = excluded.track_loop,
			auto_continue = excluded.auto_continue,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query,
		snap.SessionID, sequence, snap.Fairness, snap.QueueLoop, snap.TrackLoop, snap.AutoContinue, createdAt, updatedAt,
	); err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM queue_entries WHERE session_id = ?", snap.SessionID); err != nil {
		return fmt.Errorf("failed to clear queue entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO queue_entries (
			session_id, position, entry_id, title, url, service_id, length_seconds, thumbnail, is_live, added_by_id, added_by_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range snap.Entries {
		if _, err := stmt.ExecContext(ctx,
			snap.SessionID, i, e.ID, e.Info.Title, e.Info.URL, e.Info.ServiceID, e.Info.LengthSeconds,
			e.Info.Thumbnail, e.Info.IsLive, e.AddedBy.UserID, e.AddedBy.DisplayName,
		); err != nil {
			return fmt.Errorf("failed to insert entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	snap.Sequence = sequence
	snap.CreatedAt = createdAt
	snap.UpdatedAt = updatedAt
	return nil
}

// Load returns the stored snapshot of a session.
func (r *QueueRepository) Load(ctx context.Context, sessionID string) (*models.Snapshot, error) {
	query := `
		SELECT id, sequence, fairness, queue_loop, track_loop, auto_continue, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`
	snap, err := scanSession(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		return nil, err
	}

	if snap.Entries, err = r.entries(ctx, sessionID); err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns every stored session ordered by sequence, including entries.
func (r *QueueRepository) List(ctx context.Context) ([]*models.Snapshot, error) {
	query := `
		SELECT id, sequence, fairness, queue_loop, track_loop, auto_continue, created_at, updated_at
		FROM sessions
		ORDER BY sequence ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		snap, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	rows.Close()

	for _, snap := range snaps {
		if snap.Entries, err = r.entries(ctx, snap.SessionID); err != nil {
			return nil, err
		}
	}
	return snaps, nil
}

// Delete removes a session. Its entries go with it through the queue_entries foreign key.
func (r *QueueRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, sessionID)
	}
	return nil
}

func (r *QueueRepository) entries(ctx context.Context, sessionID string) ([]models.Entry, error) {
	query := `
		SELECT entry_id, title, url, service_id, length_seconds, thumbnail, is_live, added_by_id, added_by_name
		FROM queue_entries
		WHERE session_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(
			&e.ID, &e.Info.Title, &e.Info.URL, &e.Info.ServiceID, &e.Info.LengthSeconds,
			&e.Info.Thumbnail, &e.Info.IsLive, &e.AddedBy.UserID, &e.AddedBy.DisplayName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entries: %w", err)
	}
	return entries, nil
}

// scanner matches both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*models.Snapshot, error) {
	var snap models.Snapshot
	err := s.Scan(
		&snap.SessionID, &snap.Sequence, &snap.Fairness, &snap.QueueLoop, &snap.TrackLoop,
		&snap.AutoContinue, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return &snap, nil
}
