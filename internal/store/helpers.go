package store

import (
	"database/sql"
	"errors"
	"time"

	"cargoport/internal/cargo"
)

// timeLayout is fixed width so lexical order equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const cargoColumns = "id, created_at, updated_at, paint_time, type, status, name, description, pending, claimed_at"

func scanCargo(scanner interface{ Scan(dest ...any) error }) (*cargo.Cargo, error) {
	var (
		id           string
		createdRaw   string
		updatedRaw   string
		paintTime    sql.NullFloat64
		typeStr      string
		statusStr    string
		name         sql.NullString
		description  sql.NullString
		pending      sql.NullInt64
		claimedAtRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&createdRaw,
		&updatedRaw,
		&paintTime,
		&typeStr,
		&statusStr,
		&name,
		&description,
		&pending,
		&claimedAtRaw,
	); err != nil {
		return nil, err
	}

	item := &cargo.Cargo{
		ID:          id,
		PaintTime:   paintTime.Float64,
		Type:        cargo.Type(typeStr),
		Status:      cargo.Status(statusStr),
		Name:        name.String,
		Description: description.String,
		Pending:     pending.Valid && pending.Int64 != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		item.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	if claimedAtRaw.Valid {
		if claimed, err := parseTimeString(claimedAtRaw.String); err == nil {
			item.ClaimedAt = &claimed
		}
	}
	return item, nil
}

func scanCargoRows(rows *sql.Rows) ([]*cargo.Cargo, error) {
	defer rows.Close()
	var items []*cargo.Cargo
	for rows.Next() {
		item, err := scanCargo(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
