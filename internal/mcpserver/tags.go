package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/remote"
)

// mutateTags rewrites a note's tag list through the remote store and folds
// the result back into the cache.
func (s *Server) mutateTags(ctx context.Context, id string, mutate func([]string) []string) (*mcp.CallToolResult, error) {
	current, err := s.cache.GetNote(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := current
	n.Tags = mutate(current.Tags)

	updated, status := s.client.UpdateNote(ctx, n)
	if status != remote.StatusOK {
		return mcp.NewToolResultError(statusMessage("update tags", status)), nil
	}
	if err := s.cache.ApplyUpdate(updated); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.notify("updated", updated.ID)

	out, _ := json.MarshalIndent(s.fullView(updated), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("add_tags")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, _, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultError("tags must not be empty"), nil
	}

	return s.mutateTags(ctx, id, func(existing []string) []string {
		seen := make(map[string]struct{}, len(existing))
		merged := make([]string, 0, len(existing)+len(tags))
		for _, t := range existing {
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
		for _, t := range tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
		return merged
	})
}

func (s *Server) removeTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("remove_tags")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, _, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(tags) == 0 {
		return mcp.NewToolResultError("tags must not be empty"), nil
	}

	drop := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		drop[t] = struct{}{}
	}
	return s.mutateTags(ctx, id, func(existing []string) []string {
		kept := make([]string, 0, len(existing))
		for _, t := range existing {
			if _, ok := drop[t]; ok {
				continue
			}
			kept = append(kept, t)
		}
		return kept
	})
}

func (s *Server) replaceTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("replace_tags")
	id, err := req.RequireString("note_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, given, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !given {
		return mcp.NewToolResultError("tags is required"), nil
	}

	// An empty list is a valid replacement: it clears every tag.
	return s.mutateTags(ctx, id, func([]string) []string {
		return tags
	})
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("list_tags")
	counts := s.cache.Tags()

	out, _ := json.MarshalIndent(struct {
		Success bool             `json:"success"`
		Tags    []cache.TagCount `json:"tags"`
		Count   int              `json:"count"`
	}{true, counts, len(counts)}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
