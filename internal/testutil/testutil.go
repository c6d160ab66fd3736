// Package testutil provides shared test helpers for seeding note stores
// and building ready caches.
package testutil

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/remote"
)

// BaseTime is the fixed timestamp used by Note fixtures.
var BaseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Logger returns a logger that only surfaces errors, keeping test output quiet.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Note builds a note fixture with fixed timestamps.
func Note(id, content string, tags ...string) models.Note {
	return NoteAt(id, content, BaseTime, tags...)
}

// NoteAt builds a note fixture modified at the given time.
func NoteAt(id, content string, modified time.Time, tags ...string) models.Note {
	return models.Note{
		ID:         id,
		Content:    content,
		Tags:       tags,
		CreatedAt:  modified.Add(-time.Hour),
		ModifiedAt: modified,
		Version:    1,
	}
}

// SeededStore returns a MemStore pre-populated with the given notes.
func SeededStore(notes ...models.Note) *remote.MemStore {
	store := remote.NewMemStore()
	store.Seed(notes...)
	return store
}

// ReadyCache builds a cache over store and initializes it.
func ReadyCache(t *testing.T, store remote.Client) *cache.Cache {
	t.Helper()
	c := cache.New(store, Logger(), cache.Options{})
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	return c
}
