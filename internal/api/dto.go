package api

import (
	"time"

	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/stats"
)

// NoteSummary is a lightweight note in list and search responses.
type NoteSummary struct {
	ID         string    `json:"id" example:"9b3f2c1a" validate:"required"`
	Title      string    `json:"title" example:"Groceries" validate:"required"`
	Snippet    string    `json:"snippet" example:"milk, eggs, flour..."`
	Tags       []string  `json:"tags" validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Pinned     bool      `json:"pinned"`
}

// NoteDetail is the full note response type.
type NoteDetail struct {
	ID         string    `json:"id" example:"9b3f2c1a" validate:"required"`
	Title      string    `json:"title" example:"Groceries" validate:"required"`
	Content    string    `json:"content" example:"Groceries\nmilk\neggs" validate:"required"`
	Tags       []string  `json:"tags" validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Pinned     bool      `json:"pinned"`
	Version    int64     `json:"version" example:"3"`
}

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes      []NoteSummary  `json:"notes" validate:"required"`
	Total      int            `json:"total" example:"42" validate:"required"`
	Pagination cache.PageInfo `json:"pagination"`
}

// SearchResponse wraps paginated search results.
type SearchResponse struct {
	Query      string         `json:"query" example:"grocery AND list"`
	Results    []NoteSummary  `json:"results" validate:"required"`
	Total      int            `json:"total" example:"3" validate:"required"`
	Pagination cache.PageInfo `json:"pagination"`
}

// TagListResponse wraps the tag inventory.
type TagListResponse struct {
	Tags  []cache.TagCount `json:"tags" validate:"required"`
	Count int              `json:"count" example:"7" validate:"required"`
}

// StatusResponse reports cache state and process counters.
type StatusResponse struct {
	State     string         `json:"state" example:"ready" validate:"required"`
	Notes     int            `json:"notes" example:"120"`
	Tags      int            `json:"tags" example:"14"`
	CursorSet bool           `json:"cursor_set"`
	LastSync  time.Time      `json:"last_sync"`
	Runtime   stats.Snapshot `json:"runtime"`
}
