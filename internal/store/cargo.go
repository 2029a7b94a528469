package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cargoport/internal/cargo"
	"cargoport/internal/services"
)

// Create inserts a new cargo in shipping with no text and no claim.
func (s *Store) Create(ctx context.Context, input cargo.NewCargo) (*cargo.Cargo, error) {
	if err := input.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "create cargo", err.Error(), nil)
	}
	now := s.now().UTC()
	timestamp := formatTime(now)
	id := input.ID
	if id == "" {
		id = uuid.NewString()
	}

	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO cargo (id, created_at, updated_at, paint_time, type, status, pending)
         VALUES (?, ?, ?, ?, ?, ?, 0)`,
		id,
		timestamp,
		timestamp,
		input.PaintTime,
		input.Type,
		cargo.StatusShipping,
	); err != nil {
		return nil, fmt.Errorf("insert cargo: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a cargo by identifier. It returns nil, nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*cargo.Cargo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cargoColumns+` FROM cargo WHERE id = ?`, id)
	item, err := scanCargo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cargo: %w", err)
	}
	return item, nil
}

// ListRecent returns the newest cargo first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]*cargo.Cargo, error) {
	if limit <= 0 {
		limit = cargo.RecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+cargoColumns+` FROM cargo ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent cargo: %w", err)
	}
	return scanCargoRows(rows)
}

// ListSince returns cargo created at or after since, oldest first.
func (s *Store) ListSince(ctx context.Context, since time.Time) ([]*cargo.Cargo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cargoColumns+` FROM cargo WHERE created_at >= ? ORDER BY created_at`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("list cargo since: %w", err)
	}
	return scanCargoRows(rows)
}

// ListAll returns every cargo ordered by creation time.
func (s *Store) ListAll(ctx context.Context) ([]*cargo.Cargo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+cargoColumns+` FROM cargo ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list cargo: %w", err)
	}
	return scanCargoRows(rows)
}

// UpdateText sets both text fields directly, regardless of any claim.
func (s *Store) UpdateText(ctx context.Context, id, name, description string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET name = ?, description = ?, updated_at = ? WHERE id = ?`,
		nullableString(name),
		nullableString(description),
		formatTime(s.now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update cargo text: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cargo text: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update cargo text", fmt.Sprintf("cargo %s", id), nil)
	}
	return nil
}
