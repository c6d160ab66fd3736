// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the note cache and write-through note operations for LLM
// integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/remote"
	"github.com/starford/muninn/internal/stats"
)

// Options tune note presentation in tool and resource output. Zero values
// select the defaults.
type Options struct {
	// TitleMaxLength caps derived note titles. Default 30.
	TitleMaxLength int
	// SnippetMaxLength caps listing snippets. Default 100.
	SnippetMaxLength int
	// RecentCount is the size of the notes://recent resource. Default 10.
	RecentCount int
	// OnNoteEvent, if non-nil, observes every successful write-through
	// mutation with a kind of "created", "updated", or "deleted" and the
	// note id.
	OnNoteEvent func(kind, id string)
}

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp    *server.MCPServer
	client remote.Client
	cache  *cache.Cache
	stats  *stats.Collector
	notify func(kind, id string)

	titleMax   int
	snippetMax int
	recent     int
}

// New creates a new MCP server with all note tools and resources registered.
func New(client remote.Client, c *cache.Cache, collector *stats.Collector, opts Options) *Server {
	if collector == nil {
		collector = stats.NewCollector()
	}
	s := &Server{
		client:     client,
		cache:      c,
		stats:      collector,
		notify:     opts.OnNoteEvent,
		titleMax:   opts.TitleMaxLength,
		snippetMax: opts.SnippetMaxLength,
		recent:     opts.RecentCount,
	}
	if s.notify == nil {
		s.notify = func(string, string) {}
	}
	if s.titleMax <= 0 {
		s.titleMax = 30
	}
	if s.snippetMax <= 0 {
		s.snippetMax = 100
	}
	if s.recent <= 0 {
		s.recent = 10
	}

	s.mcp = server.NewMCPServer(
		"Muninn",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, true),
	)

	s.mcp.AddTool(mcp.NewTool("get_note",
		mcp.WithDescription("Read a note by id, including its full content and tags."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
	), s.getNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note with the given content and optional tags."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note content")),
		mcp.WithString("tags", mcp.Description("Comma-separated list of tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the content of an existing note. Tags are kept unless a new set is given."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New note content")),
		mcp.WithString("tags", mcp.Description("Comma-separated list of tags replacing the current set")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Move a note to the trash."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search notes with boolean operators (AND, OR, NOT) and quoted phrases. "+
			"Read the muninn://search-syntax resource for the full grammar."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum results per page")),
		mcp.WithNumber("offset", mcp.Description("Results to skip for pagination")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; every tag must match. Use 'untagged' for notes without tags")),
		mcp.WithString("from_date", mcp.Description("Earliest modification date, YYYY-MM-DD or RFC 3339")),
		mcp.WithString("to_date", mcp.Description("Latest modification date, YYYY-MM-DD or RFC 3339")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes with optional tag filtering, sorting, and pagination."),
		mcp.WithNumber("limit", mcp.Description("Maximum results per page")),
		mcp.WithNumber("offset", mcp.Description("Results to skip for pagination")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags; every tag must match. Use 'untagged' for notes without tags")),
		mcp.WithString("sort_by", mcp.Description("Sort key: modified, created, title, or length")),
		mcp.WithString("sort_direction", mcp.Description("Sort direction: asc or desc")),
		mcp.WithBoolean("pinned_first", mcp.Description("Group pinned notes before the rest")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("add_tags",
		mcp.WithDescription("Add tags to a note, keeping its existing ones."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated list of tags to add")),
	), s.addTags)

	s.mcp.AddTool(mcp.NewTool("remove_tags",
		mcp.WithDescription("Remove tags from a note."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated list of tags to remove")),
	), s.removeTags)

	s.mcp.AddTool(mcp.NewTool("replace_tags",
		mcp.WithDescription("Replace a note's tags with the given set. An empty set clears all tags."),
		mcp.WithString("note_id", mcp.Required(), mcp.Description("Note identifier")),
		mcp.WithString("tags", mcp.Required(), mcp.Description("Comma-separated list of tags; empty to clear")),
	), s.replaceTags)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List all tags in use with per-tag note counts."),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("sync_now",
		mcp.WithDescription("Fetch and apply remote changes immediately instead of waiting for the next background sync."),
	), s.syncNow)

	// Resource: single note by id.
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate("note://{id}", "Note",
			mcp.WithTemplateDescription("Full content of a single note by id."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.readNoteResource,
	)

	// Resource: most recently modified notes.
	s.mcp.AddResource(
		mcp.NewResource("notes://recent", "Recent Notes",
			mcp.WithResourceDescription("The most recently modified notes."),
			mcp.WithMIMEType("application/json"),
		),
		s.readRecentResource,
	)

	// Resource: query grammar for LLM consumers.
	s.mcp.AddResource(
		mcp.NewResource("muninn://search-syntax", "Search Syntax",
			mcp.WithResourceDescription("The boolean query grammar accepted by search_notes."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSyntaxResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Listen serves the MCP protocol on the given streams until ctx is
// cancelled or the input stream closes.
func (s *Server) Listen(ctx context.Context, in io.Reader, out io.Writer) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) syncNow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.stats.ToolCalled("sync_now")
	if s.cache.State() != cache.StateReady {
		if err := s.cache.Initialize(ctx); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(struct {
			Success     bool `json:"success"`
			Initialized bool `json:"initialized"`
			Notes       int  `json:"notes"`
		}{true, true, s.cache.Stats().Notes}, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	touched, err := s.cache.Sync(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(struct {
		Success      bool `json:"success"`
		NotesTouched int  `json:"notes_touched"`
	}{true, touched}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNoteResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(req.Params.URI, "note://")
	n, err := s.cache.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	out, _ := json.MarshalIndent(s.fullView(n), "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readRecentResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	page, err := s.cache.GetAllNotes(cache.ListOptions{Limit: s.recent})
	if err != nil {
		return nil, err
	}
	views := make([]noteView, 0, len(page.Notes))
	for _, n := range page.Notes {
		views = append(views, s.summaryView(n))
	}
	out, _ := json.MarshalIndent(views, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "notes://recent",
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readSyntaxResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "muninn://search-syntax",
			MIMEType: "text/markdown",
			Text:     QuerySyntaxGuide,
		},
	}, nil
}
