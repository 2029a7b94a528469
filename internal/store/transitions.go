package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cargoport/internal/cargo"
)

// DeliverShipped moves shipping cargo created before cutoff to delivered.
func (s *Store) DeliverShipped(ctx context.Context, cutoff, now time.Time) ([]string, error) {
	ids, err := s.queryIDsWithRetry(
		ctx,
		`UPDATE cargo SET status = ?, updated_at = ?
         WHERE status = ? AND created_at < ?
         RETURNING id`,
		cargo.StatusDelivered,
		formatTime(now),
		cargo.StatusShipping,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("deliver shipped cargo: %w", err)
	}
	return ids, nil
}

// LaunchDelivered moves every delivered cargo to launched.
func (s *Store) LaunchDelivered(ctx context.Context, now time.Time) (int, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET status = ?, updated_at = ? WHERE status = ?`,
		cargo.StatusLaunched,
		formatTime(now),
		cargo.StatusDelivered,
	)
	if err != nil {
		return 0, fmt.Errorf("launch delivered cargo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("launch delivered cargo: %w", err)
	}
	return int(affected), nil
}

// ListUnenriched returns ids of cargo with no text and no claim.
func (s *Store) ListUnenriched(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM cargo
         WHERE name IS NULL AND description IS NULL AND pending = 0
         ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unenriched cargo: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Claim marks the cargo pending if nobody holds it and it has no text. The
// returned token identifies this claim to Release and CompleteEnrichment.
func (s *Store) Claim(ctx context.Context, id string, now time.Time) (string, bool, error) {
	token := uuid.NewString()
	timestamp := formatTime(now)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET pending = 1, claimed_at = ?, claim_token = ?, updated_at = ?
         WHERE id = ? AND pending = 0 AND name IS NULL AND description IS NULL`,
		timestamp,
		token,
		timestamp,
		id,
	)
	if err != nil {
		return "", false, fmt.Errorf("claim cargo: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("claim cargo: %w", err)
	}
	if affected != 1 {
		return "", false, nil
	}
	return token, true, nil
}

// Release clears the claim identified by token. Releasing a claim that was
// reclaimed or taken over since is a no-op.
func (s *Store) Release(ctx context.Context, id, token string) error {
	if _, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET pending = 0, claimed_at = NULL, claim_token = NULL, updated_at = ?
         WHERE id = ? AND pending = 1 AND claim_token = ?`,
		formatTime(s.now()),
		id,
		token,
	); err != nil {
		return fmt.Errorf("release cargo claim: %w", err)
	}
	return nil
}

// CompleteEnrichment persists generated text and clears the claim together.
// It writes nothing unless token still holds the claim and both text fields
// are empty.
func (s *Store) CompleteEnrichment(ctx context.Context, id, token, name, description string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET name = ?, description = ?, pending = 0, claimed_at = NULL, claim_token = NULL, updated_at = ?
         WHERE id = ? AND pending = 1 AND claim_token = ? AND name IS NULL AND description IS NULL`,
		name,
		description,
		formatTime(s.now()),
		id,
		token,
	)
	if err != nil {
		return false, fmt.Errorf("complete enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete enrichment: %w", err)
	}
	return affected == 1, nil
}

// ReclaimStaleClaims releases claims taken before cutoff.
func (s *Store) ReclaimStaleClaims(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE cargo SET pending = 0, claimed_at = NULL, claim_token = NULL, updated_at = ?
         WHERE pending = 1 AND (claimed_at IS NULL OR claimed_at < ?)`,
		formatTime(s.now()),
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale claims: %w", err)
	}
	return res.RowsAffected()
}
