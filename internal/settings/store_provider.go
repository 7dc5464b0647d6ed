package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// StoreProvider keeps settings in a single sqlite row.
type StoreProvider struct {
	db *sql.DB
}

// NewStoreProvider creates a database-backed settings provider.
func NewStoreProvider(d *sql.DB) *StoreProvider {
	return &StoreProvider{db: d}
}

// Load reads the stored settings, falling back to defaults when none have
// been saved yet.
func (p *StoreProvider) Load(ctx context.Context) (Settings, error) {
	var data string
	err := p.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("failed to load settings: %w", err)
	}

	var s Settings
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return Defaults(), fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return s, nil
}

// Save persists the settings, overwriting any previous row.
func (p *StoreProvider) Save(ctx context.Context, s Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = p.db.ExecContext(ctx,
		`INSERT INTO settings (id, data) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET data = excluded.data`, string(data))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
