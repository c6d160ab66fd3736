// Package models defines the domain types for Muninn.
package models

import (
	"strings"
	"time"
)

// Note is one note from the remote store, held in the local cache.
// The cache owns every Note it stores; callers receive copies.
type Note struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Deleted    bool      `json:"deleted,omitempty"`
	Pinned     bool      `json:"pinned,omitempty"`
	Version    int64     `json:"version"`
}

// Change is one record from the remote changes feed: either an updated
// note payload or a tombstone marking a deletion.
type Change struct {
	ID        string `json:"id"`
	Tombstone bool   `json:"tombstone,omitempty"`
	Note      Note   `json:"note"`
}

// Clone returns a copy whose tags slice shares no storage with the original.
func (n Note) Clone() Note {
	out := n
	if n.Tags != nil {
		out.Tags = make([]string, len(n.Tags))
		copy(out.Tags, n.Tags)
	}
	return out
}

// HasTag reports whether the note carries the exact tag.
func (n Note) HasTag(tag string) bool {
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Title returns the first non-blank line of the content, truncated to max
// runes. fallback is returned when the content has no non-blank line.
func (n Note) Title(max int, fallback string) string {
	for _, line := range strings.Split(n.Content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		return truncate(line, max)
	}
	return fallback
}

// Snippet returns the content truncated to max runes, with an ellipsis
// appended when anything was cut.
func (n Note) Snippet(max int) string {
	r := []rune(n.Content)
	if len(r) <= max {
		return n.Content
	}
	return string(r[:max]) + "..."
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	return string(r[:max])
}
