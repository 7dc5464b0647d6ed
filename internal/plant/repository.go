package plant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrNotFound is returned when no plant exists for the given ID.
var ErrNotFound = errors.New("plant not found")

// ErrInvalidFrequency is returned when a plant is saved with a
// non-positive watering frequency.
var ErrInvalidFrequency = errors.New("watering frequency must be positive")

// Repository is a database-backed store for plants. Each plant is stored as
// a JSON blob row; waterings are logged separately so achievement counters
// survive plant edits.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts or updates a plant.
func (r *Repository) Save(ctx context.Context, p Plant) error {
	if p.WateringFrequencyDays != nil && *p.WateringFrequencyDays <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrequency, *p.WateringFrequencyDays)
	}

	p.UpdatedAt = time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = p.UpdatedAt
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal plant to JSON: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO plants (id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.ID, string(data), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plant: %w", err)
	}
	return nil
}

// Get retrieves a plant by its ID.
func (r *Repository) Get(ctx context.Context, id string) (*Plant, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM plants WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plant by ID: %w", err)
	}

	var p Plant
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plant JSON: %w", err)
	}
	return &p, nil
}

// List retrieves all plants ordered by creation time.
func (r *Repository) List(ctx context.Context) ([]Plant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM plants ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan plant row: %w", err)
		}
		var p Plant
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			// Log-and-skip keeps one corrupt row from hiding the rest.
			log.Printf("Warning: Failed to unmarshal plant JSON: %v", err)
			continue
		}
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// Delete removes a plant and its watering log.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete plant: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrNotFound
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM waterings WHERE plant_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete watering log: %w", err)
	}
	return nil
}

// MarkWatered sets the plant's lastWatered timestamp and appends a row to
// the watering log. This is the only path that mutates lastWatered.
func (r *Repository) MarkWatered(ctx context.Context, id string, at time.Time) (*Plant, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	watered := at.UTC()
	p.LastWatered = &watered
	if err := r.Save(ctx, *p); err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO waterings (plant_id, watered_at) VALUES (?, ?)`, id, watered); err != nil {
		return nil, fmt.Errorf("failed to log watering: %w", err)
	}
	return p, nil
}

// Count returns the number of tracked plants.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count plants: %w", err)
	}
	return count, nil
}

// CountDistinctSpecies counts distinct common names across the collection.
func (r *Repository) CountDistinctSpecies(ctx context.Context) (int, error) {
	plants, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{})
	for _, p := range plants {
		if p.CommonName != "" {
			seen[p.CommonName] = struct{}{}
		}
	}
	return len(seen), nil
}

// WateringCount returns the total number of logged waterings.
func (r *Repository) WateringCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waterings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count waterings: %w", err)
	}
	return count, nil
}
