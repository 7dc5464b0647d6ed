package achievements

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status is an achievement together with its persisted unlock state.
type Status struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlockedAt,omitempty"`
}

// Store persists the unlock map. Unlocks are monotonic: once a row is
// unlocked it never flips back, regardless of later deletions.
type Store struct {
	db      *sql.DB
	catalog []Achievement
}

// NewStore creates a Store over the given database and catalog.
func NewStore(d *sql.DB, catalog []Achievement) *Store {
	return &Store{db: d, catalog: catalog}
}

// Evaluate checks every locked achievement against the observations and
// unlocks the ones whose goal is now met. It is idempotent; re-running with
// the same observations unlocks nothing new. Returns the newly unlocked
// achievements.
func (s *Store) Evaluate(ctx context.Context, obs Observations) ([]Achievement, error) {
	unlocked, err := s.unlockedSet(ctx)
	if err != nil {
		return nil, err
	}

	var newlyUnlocked []Achievement
	for _, a := range s.catalog {
		if unlocked[a.ID] {
			continue
		}
		if !a.Eligible(obs.value(a.Metric)) {
			continue
		}

		_, err := s.db.ExecContext(ctx,
			`INSERT INTO achievements (id, unlocked, unlocked_at) VALUES (?, 1, ?)
			 ON CONFLICT(id) DO UPDATE SET unlocked = 1, unlocked_at = COALESCE(achievements.unlocked_at, excluded.unlocked_at)`,
			a.ID, time.Now().UTC())
		if err != nil {
			return newlyUnlocked, fmt.Errorf("failed to unlock achievement %s: %w", a.ID, err)
		}
		newlyUnlocked = append(newlyUnlocked, a)
	}
	return newlyUnlocked, nil
}

// List returns the full catalog with unlock state.
func (s *Store) List(ctx context.Context) ([]Status, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, unlocked, unlocked_at FROM achievements`)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	type state struct {
		unlocked   bool
		unlockedAt *time.Time
	}
	states := make(map[string]state)
	for rows.Next() {
		var id string
		var unlocked int
		var unlockedAt sql.NullTime
		if err := rows.Scan(&id, &unlocked, &unlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		st := state{unlocked: unlocked != 0}
		if unlockedAt.Valid {
			ts := unlockedAt.Time
			st.unlockedAt = &ts
		}
		states[id] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(s.catalog))
	for _, a := range s.catalog {
		st := states[a.ID]
		statuses = append(statuses, Status{
			Achievement: a,
			Unlocked:    st.unlocked,
			UnlockedAt:  st.unlockedAt,
		})
	}
	return statuses, nil
}

func (s *Store) unlockedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM achievements WHERE unlocked = 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to load unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan achievement id: %w", err)
		}
		unlocked[id] = true
	}
	return unlocked, rows.Err()
}
