package settings

import (
	"context"
	"path/filepath"
	"testing"

	"ai-plant-care/internal/database"
)

func TestStoreProvider(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	provider := NewStoreProvider(db.SQL)

	t.Run("DefaultsBeforeSave", func(t *testing.T) {
		s, err := provider.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if s.Theme != "light" || s.Timezone != "UTC" {
			t.Errorf("Expected defaults, got %+v", s)
		}
	})

	t.Run("SaveAndReload", func(t *testing.T) {
		saved := Settings{
			Theme:            "dark",
			RemindersEnabled: true,
			Timezone:         "Europe/Lisbon",
			Location:         "Lisbon",
		}
		if err := provider.Save(ctx, saved); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := provider.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded != saved {
			t.Errorf("Expected %+v, got %+v", saved, loaded)
		}
	})

	t.Run("SaveOverwrites", func(t *testing.T) {
		if err := provider.Save(ctx, Settings{Theme: "light", Location: "Porto"}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		loaded, err := provider.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if loaded.Location != "Porto" {
			t.Errorf("Expected overwritten location 'Porto', got '%s'", loaded.Location)
		}
	})
}
