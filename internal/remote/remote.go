// Package remote defines the boundary to the remote note store service and
// its implementations. All calls report success through an integer status:
// StatusOK means the payload is usable, anything else describes the failure.
// Dynamically shaped wire records are coerced into models.Note here, so the
// cache never inspects raw payloads.
package remote

import (
	"context"

	"github.com/starford/muninn/internal/models"
)

// Call statuses. StatusOK is the zero value: the remote service reports
// 0 on success.
const (
	StatusOK           = 0
	StatusError        = 1
	StatusNotFound     = 2
	StatusUnauthorized = 3
	StatusBadPayload   = 4
)

// Client is the remote note store consumed by the cache and the tool layer.
type Client interface {
	// ListNotes returns every note in the account. Records that could not
	// be coerced into a Note are returned with an empty ID so the caller
	// can count and log them.
	ListNotes(ctx context.Context) ([]models.Note, int)

	// ListChanges returns the changes recorded after cursor, in the order
	// the remote store applied them, plus the cursor marking the new
	// position. An empty cursor requests the full history.
	ListChanges(ctx context.Context, cursor string, includeTags bool) (string, []models.Change, int)

	// GetNote fetches one note by id. StatusNotFound reports an id the
	// remote store does not know.
	GetNote(ctx context.Context, id string) (models.Note, int)

	// CreateNote stores a new note and returns it with the id, version,
	// and timestamps the remote store assigned.
	CreateNote(ctx context.Context, n models.Note) (models.Note, int)

	// UpdateNote replaces the content, tags, and flags of an existing note.
	UpdateNote(ctx context.Context, n models.Note) (models.Note, int)

	// TrashNote moves a note to the remote trash.
	TrashNote(ctx context.Context, id string) int
}
