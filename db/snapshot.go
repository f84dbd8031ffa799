package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"repocard/logger"
	"repocard/models"
)

const insertSnapshotQuery = `
	INSERT INTO repository_snapshots (
		owner, name, description, language,
		stars_count, forks_count, fetched_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id
`

// RecordSnapshot appends a snapshot row
func (db *DB) RecordSnapshot(ctx context.Context, s models.Snapshot) error {
	if s.Owner == "" || s.Name == "" {
		return fmt.Errorf("%w: snapshot owner and name cannot be empty", ErrInvalidInput)
	}
	if s.Stars < 0 || s.Forks < 0 {
		return fmt.Errorf("%w: snapshot counts cannot be negative", ErrInvalidInput)
	}

	stmt, err := db.getStmt(ctx, insertSnapshotQuery)
	if err != nil {
		return err
	}

	var id int
	if err := stmt.GetContext(ctx, &id,
		s.Owner, s.Name, s.Description, s.Language,
		s.Stars, s.Forks, s.FetchedAt,
	); err != nil {
		return fmt.Errorf("failed to record snapshot for %s/%s: %w", s.Owner, s.Name, err)
	}

	logger.Debug("Snapshot recorded",
		zap.Int("id", id),
		zap.String("owner", s.Owner),
		zap.String("name", s.Name))
	return nil
}

// ListSnapshots returns snapshots of owner/name, newest first
func (db *DB) ListSnapshots(ctx context.Context, owner, name string, page models.PaginationParams) ([]models.Snapshot, error) {
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and name cannot be empty", ErrInvalidInput)
	}
	page = models.NewPaginationParams(page.Page, page.PageSize)

	query := `
		SELECT id, owner, name, description, language,
			stars_count, forks_count, fetched_at
		FROM repository_snapshots
		WHERE owner = $1 AND name = $2
		ORDER BY fetched_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`

	snapshots := []models.Snapshot{}
	if err := db.conn.SelectContext(ctx, &snapshots, query, owner, name, page.PageSize, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s/%s: %w", owner, name, err)
	}
	return snapshots, nil
}

// LatestSnapshot returns the most recent snapshot of owner/name
func (db *DB) LatestSnapshot(ctx context.Context, owner, name string) (*models.Snapshot, error) {
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and name cannot be empty", ErrInvalidInput)
	}

	query := `
		SELECT id, owner, name, description, language,
			stars_count, forks_count, fetched_at
		FROM repository_snapshots
		WHERE owner = $1 AND name = $2
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`

	var s models.Snapshot
	if err := db.conn.GetContext(ctx, &s, query, owner, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s/%s", ErrSnapshotNotFound, owner, name)
		}
		return nil, fmt.Errorf("failed to get latest snapshot for %s/%s: %w", owner, name, err)
	}
	return &s, nil
}
