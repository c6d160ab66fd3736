package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/muninn/internal/cache"
)

// envelope is the paginated response shape shared by search_notes and
// list_notes.
type envelope struct {
	Success    bool           `json:"success"`
	Results    []noteView     `json:"results"`
	Count      int            `json:"count"`
	Total      int            `json:"total"`
	Query      string         `json:"query,omitempty"`
	Pagination cache.PageInfo `json:"pagination"`
}

func (s *Server) pageResult(page cache.Page, query string) (*mcp.CallToolResult, error) {
	views := make([]noteView, 0, len(page.Notes))
	for _, n := range page.Notes {
		views = append(views, s.summaryView(n))
	}
	out, _ := json.MarshalIndent(envelope{
		Success:    true,
		Results:    views,
		Count:      len(views),
		Total:      page.Total,
		Query:      query,
		Pagination: page.Info,
	}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("search_notes")
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit, err := argInt(req, "limit", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset, err := argInt(req, "offset", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, _, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := argTime(req, "from_date", false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := argTime(req, "to_date", true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	page, err := s.cache.SearchNotes(cache.SearchOptions{
		Query:  query,
		Limit:  limit,
		Offset: offset,
		Tags:   tags,
		From:   from,
		To:     to,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.pageResult(page, query)
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("list_notes")
	limit, err := argInt(req, "limit", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset, err := argInt(req, "offset", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags, _, err := argTags(req, "tags")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pinnedFirst, err := argBool(req, "pinned_first")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sortBy, _ := req.GetArguments()["sort_by"].(string)
	sortDir, _ := req.GetArguments()["sort_direction"].(string)

	page, err := s.cache.GetAllNotes(cache.ListOptions{
		Limit:         limit,
		Offset:        offset,
		TagFilter:     tags,
		SortBy:        cache.SortKey(sortBy),
		SortDirection: cache.SortDirection(sortDir),
		PinnedFirst:   pinnedFirst,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.pageResult(page, "")
}
