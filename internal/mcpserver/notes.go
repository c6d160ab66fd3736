package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/remote"
)

// noteView is the JSON shape of a note in tool and resource output.
// Listings carry a snippet; single-note reads carry the full content.
type noteView struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Snippet    string    `json:"snippet,omitempty"`
	Content    string    `json:"content,omitempty"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Pinned     bool      `json:"pinned"`
	Version    int64     `json:"version,omitempty"`
}

func (s *Server) summaryView(n models.Note) noteView {
	return noteView{
		ID:         n.ID,
		Title:      n.Title(s.titleMax, n.ID),
		Snippet:    n.Snippet(s.snippetMax),
		Tags:       tagsOrEmpty(n.Tags),
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Pinned:     n.Pinned,
	}
}

func (s *Server) fullView(n models.Note) noteView {
	return noteView{
		ID:         n.ID,
		Title:      n.Title(s.titleMax, n.ID),
		Content:    n.Content,
		Tags:       tagsOrEmpty(n.Tags),
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Pinned:     n.Pinned,
		Version:    n.Version,
	}
}

// tagsOrEmpty keeps tag lists as [] rather than null in JSON output.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// statusMessage renders a remote status code as a tool error message.
func statusMessage(op string, status int) string {
	switch status {
	case remote.StatusNotFound:
		return op + ": note not found"
	case remote.StatusUnauthorized:
		return op + ": remote store rejected the credentials"
	case remote.StatusBadPayload:
		return op + ": remote store returned an unusable payload"
	}
	return fmt.Sprintf("%s: remote store failed with status %d", op, status)
}

func (s *Server) getNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("get_note")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.cache.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(s.fullView(n), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("create_note")
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("content must not be empty"), nil
	}
	tags, _, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, status := s.client.CreateNote(ctx, models.Note{Content: content, Tags: tags})
	if status != remote.StatusOK {
		return mcp.NewToolResultError(statusMessage("create note", status)), nil
	}
	if err := s.cache.ApplyCreate(n); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.notify("created", n.ID)

	out, _ := json.MarshalIndent(s.fullView(n), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("update_note")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, tagsGiven, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	current, err := s.cache.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := current
	n.Content = content
	if tagsGiven {
		n.Tags = tags
	}

	updated, status := s.client.UpdateNote(ctx, n)
	if status != remote.StatusOK {
		return mcp.NewToolResultError(statusMessage("update note", status)), nil
	}
	if err := s.cache.ApplyUpdate(updated); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.notify("updated", updated.ID)

	out, _ := json.MarshalIndent(s.fullView(updated), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("delete_note")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if status := s.client.TrashNote(ctx, id); status != remote.StatusOK {
		return mcp.NewToolResultError(statusMessage("delete note", status)), nil
	}
	if err := s.cache.ApplyDelete(id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.notify("deleted", id)

	out, _ := json.MarshalIndent(struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}{true, id}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
