package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/remote"
	"github.com/starford/muninn/internal/stats"
	"github.com/starford/muninn/internal/testutil"
)

func testServer(t *testing.T, notes ...models.Note) (*Server, *remote.MemStore) {
	t.Helper()
	store := testutil.SeededStore(notes...)
	c := testutil.ReadyCache(t, store)
	return New(store, c, stats.NewCollector(), Options{}), store
}

// callTool dispatches to the handler methods directly; mcp-go has no
// call-a-registered-tool test helper.
func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_note":
		result, err = srv.getNote(ctx, req)
	case "create_note":
		result, err = srv.createNote(ctx, req)
	case "update_note":
		result, err = srv.updateNote(ctx, req)
	case "delete_note":
		result, err = srv.deleteNote(ctx, req)
	case "search_notes":
		result, err = srv.searchNotes(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "add_tags":
		result, err = srv.addTags(ctx, req)
	case "remove_tags":
		result, err = srv.removeTags(ctx, req)
	case "replace_tags":
		result, err = srv.replaceTags(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "sync_now":
		result, err = srv.syncNow(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeResult(t *testing.T, r *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if r.IsError {
		t.Fatalf("tool returned error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func resultIDs(env envelope) []string {
	ids := make([]string, 0, len(env.Results))
	for _, v := range env.Results {
		ids = append(ids, v.ID)
	}
	return ids
}

func TestCreateAndGetNote(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "create_note", map[string]interface{}{
		"content": "# Groceries\nmilk\neggs",
		"tags":    "home, errands",
	})
	var created noteView
	decodeResult(t, r, &created)
	if created.ID == "" {
		t.Fatal("created note has no id")
	}
	if created.Title != "# Groceries" {
		t.Errorf("title = %q", created.Title)
	}
	if len(created.Tags) != 2 || created.Tags[0] != "home" || created.Tags[1] != "errands" {
		t.Errorf("tags = %v", created.Tags)
	}
	if created.Version != 1 {
		t.Errorf("version = %d, want 1", created.Version)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d notes, want 1", store.Len())
	}

	r = callTool(t, srv, "get_note", map[string]interface{}{"note_id": created.ID})
	var got noteView
	decodeResult(t, r, &got)
	if got.Content != "# Groceries\nmilk\neggs" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestCreateNote_EmptyContent(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "create_note", map[string]interface{}{"content": "  \n\t "})
	if !r.IsError {
		t.Fatal("expected error for blank content")
	}
	if !strings.Contains(resultText(r), "empty") {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestGetNote_MissingArgument(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_note", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error when note_id is missing")
	}
}

func TestUpdateNote_KeepsTagsWhenAbsent(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "old text", "keep"))

	r := callTool(t, srv, "update_note", map[string]interface{}{
		"note_id": "n1",
		"content": "new text",
	})
	var v noteView
	decodeResult(t, r, &v)
	if v.Content != "new text" {
		t.Errorf("content = %q", v.Content)
	}
	if len(v.Tags) != 1 || v.Tags[0] != "keep" {
		t.Errorf("tags = %v, want [keep]", v.Tags)
	}
	if v.Version != 2 {
		t.Errorf("version = %d, want 2", v.Version)
	}
}

func TestUpdateNote_ReplacesTagsWhenGiven(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "old text", "keep"))

	r := callTool(t, srv, "update_note", map[string]interface{}{
		"note_id": "n1",
		"content": "new text",
		"tags":    "a, b",
	})
	var v noteView
	decodeResult(t, r, &v)
	if len(v.Tags) != 2 || v.Tags[0] != "a" || v.Tags[1] != "b" {
		t.Errorf("tags = %v, want [a b]", v.Tags)
	}
}

func TestDeleteNote_ThenGetFails(t *testing.T) {
	srv, store := testServer(t, testutil.Note("n1", "doomed"))

	r := callTool(t, srv, "delete_note", map[string]interface{}{"note_id": "n1"})
	var v struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}
	decodeResult(t, r, &v)
	if !v.Success || v.ID != "n1" {
		t.Errorf("delete result = %+v", v)
	}
	if store.Len() != 0 {
		t.Errorf("store has %d notes after delete", store.Len())
	}

	r = callTool(t, srv, "get_note", map[string]interface{}{"note_id": "n1"})
	if !r.IsError {
		t.Error("expected error reading deleted note")
	}
}

func TestDeleteNote_Missing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "delete_note", map[string]interface{}{"note_id": "nope"})
	if !r.IsError {
		t.Fatal("expected error for unknown note")
	}
	if !strings.Contains(resultText(r), "not found") {
		t.Errorf("error = %q", resultText(r))
	}
}

func TestSearchNotes_RanksAndPaginates(t *testing.T) {
	srv, _ := testServer(t,
		testutil.NoteAt("a", "go and go and go", testutil.BaseTime),
		testutil.NoteAt("b", "go hiking", testutil.BaseTime.Add(time.Hour)),
		testutil.NoteAt("c", "shopping list", testutil.BaseTime.Add(2*time.Hour)),
	)

	r := callTool(t, srv, "search_notes", map[string]interface{}{
		"query": "go",
		"limit": 1,
	})
	var env envelope
	decodeResult(t, r, &env)
	if env.Total != 2 || env.Count != 1 {
		t.Fatalf("total = %d count = %d, want 2 and 1", env.Total, env.Count)
	}
	// Three occurrences in "a" outrank the more recent "b".
	if env.Results[0].ID != "a" {
		t.Errorf("first result = %s, want a", env.Results[0].ID)
	}
	if env.Query != "go" {
		t.Errorf("query = %q", env.Query)
	}
	if !env.Pagination.HasMore || env.Pagination.TotalPages != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}
	if env.Pagination.NextOffset == nil || *env.Pagination.NextOffset != 1 {
		t.Errorf("next_offset = %v, want 1", env.Pagination.NextOffset)
	}

	r = callTool(t, srv, "search_notes", map[string]interface{}{
		"query":  "go",
		"limit":  1,
		"offset": 1,
	})
	decodeResult(t, r, &env)
	if len(env.Results) != 1 || env.Results[0].ID != "b" {
		t.Errorf("second page = %v", resultIDs(env))
	}
	if env.Pagination.HasMore || env.Pagination.Page != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}
}

func TestSearchNotes_TagFilter(t *testing.T) {
	srv, _ := testServer(t,
		testutil.Note("a", "go hiking", "outdoors"),
		testutil.Note("b", "go swimming"),
	)

	r := callTool(t, srv, "search_notes", map[string]interface{}{
		"query": "go",
		"tags":  "outdoors",
	})
	var env envelope
	decodeResult(t, r, &env)
	if len(env.Results) != 1 || env.Results[0].ID != "a" {
		t.Errorf("results = %v, want [a]", resultIDs(env))
	}
}

func TestSearchNotes_DateWindow(t *testing.T) {
	srv, _ := testServer(t,
		testutil.NoteAt("a", "go hiking", testutil.BaseTime),
		testutil.NoteAt("b", "go swimming", testutil.BaseTime.AddDate(0, 0, 3)),
	)

	r := callTool(t, srv, "search_notes", map[string]interface{}{
		"query":     "go",
		"from_date": "2024-05-02",
	})
	var env envelope
	decodeResult(t, r, &env)
	if len(env.Results) != 1 || env.Results[0].ID != "b" {
		t.Errorf("from_date results = %v, want [b]", resultIDs(env))
	}

	// A date-only upper bound covers the whole day; "a" was modified at
	// noon on the boundary date.
	r = callTool(t, srv, "search_notes", map[string]interface{}{
		"query":   "go",
		"to_date": "2024-05-01",
	})
	decodeResult(t, r, &env)
	if len(env.Results) != 1 || env.Results[0].ID != "a" {
		t.Errorf("to_date results = %v, want [a]", resultIDs(env))
	}
}

func TestSearchNotes_EmptyQuery(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("a", "anything"))

	r := callTool(t, srv, "search_notes", map[string]interface{}{"query": "   "})
	var env envelope
	decodeResult(t, r, &env)
	if env.Total != 0 || len(env.Results) != 0 {
		t.Errorf("empty query matched %d notes", env.Total)
	}
}

func TestListNotes_DefaultOrder(t *testing.T) {
	srv, _ := testServer(t,
		testutil.NoteAt("old", "banana bread recipe", testutil.BaseTime),
		testutil.NoteAt("mid", "apple pie notes", testutil.BaseTime.Add(time.Hour)),
		testutil.NoteAt("new", "cherry cake", testutil.BaseTime.Add(2*time.Hour)),
	)

	r := callTool(t, srv, "list_notes", map[string]interface{}{})
	var env envelope
	decodeResult(t, r, &env)
	ids := resultIDs(env)
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Errorf("order = %v, want [new mid old]", ids)
	}
}

func TestListNotes_SortByTitle(t *testing.T) {
	srv, _ := testServer(t,
		testutil.NoteAt("n1", "banana bread recipe", testutil.BaseTime),
		testutil.NoteAt("n2", "apple pie notes", testutil.BaseTime.Add(time.Hour)),
		testutil.NoteAt("n3", "cherry cake", testutil.BaseTime.Add(2*time.Hour)),
	)

	r := callTool(t, srv, "list_notes", map[string]interface{}{"sort_by": "title"})
	var env envelope
	decodeResult(t, r, &env)
	ids := resultIDs(env)
	if len(ids) != 3 || ids[0] != "n2" || ids[1] != "n1" || ids[2] != "n3" {
		t.Errorf("order = %v, want [n2 n1 n3]", ids)
	}
}

func TestListNotes_PinnedFirst(t *testing.T) {
	pinned := testutil.NoteAt("p", "oldest but pinned", testutil.BaseTime)
	pinned.Pinned = true
	srv, _ := testServer(t,
		pinned,
		testutil.NoteAt("a", "newer", testutil.BaseTime.Add(time.Hour)),
		testutil.NoteAt("b", "newest", testutil.BaseTime.Add(2*time.Hour)),
	)

	r := callTool(t, srv, "list_notes", map[string]interface{}{"pinned_first": true})
	var env envelope
	decodeResult(t, r, &env)
	ids := resultIDs(env)
	if len(ids) != 3 || ids[0] != "p" {
		t.Errorf("order = %v, want p first", ids)
	}
}

func TestListNotes_UntaggedFilter(t *testing.T) {
	srv, _ := testServer(t,
		testutil.Note("tagged", "has a tag", "work"),
		testutil.Note("bare", "no tags here"),
	)

	r := callTool(t, srv, "list_notes", map[string]interface{}{"tags": "untagged"})
	var env envelope
	decodeResult(t, r, &env)
	if len(env.Results) != 1 || env.Results[0].ID != "bare" {
		t.Errorf("results = %v, want [bare]", resultIDs(env))
	}
}

func TestAddTags_MergesWithoutDuplicates(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "text", "a"))

	r := callTool(t, srv, "add_tags", map[string]interface{}{
		"note_id": "n1",
		"tags":    "b, a, c",
	})
	var v noteView
	decodeResult(t, r, &v)
	if len(v.Tags) != 3 || v.Tags[0] != "a" || v.Tags[1] != "b" || v.Tags[2] != "c" {
		t.Errorf("tags = %v, want [a b c]", v.Tags)
	}
}

func TestAddTags_EmptyRejected(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "text"))
	r := callTool(t, srv, "add_tags", map[string]interface{}{
		"note_id": "n1",
		"tags":    "  ",
	})
	if !r.IsError {
		t.Error("expected error for empty tag list")
	}
}

func TestRemoveTags(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "text", "a", "b", "c"))

	r := callTool(t, srv, "remove_tags", map[string]interface{}{
		"note_id": "n1",
		"tags":    "b",
	})
	var v noteView
	decodeResult(t, r, &v)
	if len(v.Tags) != 2 || v.Tags[0] != "a" || v.Tags[1] != "c" {
		t.Errorf("tags = %v, want [a c]", v.Tags)
	}
}

func TestReplaceTags_EmptyListClears(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "text", "a", "b"))

	r := callTool(t, srv, "replace_tags", map[string]interface{}{
		"note_id": "n1",
		"tags":    "",
	})
	var v noteView
	decodeResult(t, r, &v)
	if len(v.Tags) != 0 {
		t.Errorf("tags = %v, want none", v.Tags)
	}
}

func TestListTags_AlphabeticalWithCounts(t *testing.T) {
	srv, _ := testServer(t,
		testutil.Note("n1", "one", "work", "admin"),
		testutil.Note("n2", "two", "work"),
	)

	r := callTool(t, srv, "list_tags", map[string]interface{}{})
	var v struct {
		Success bool `json:"success"`
		Tags    []struct {
			Tag   string `json:"tag"`
			Count int    `json:"count"`
		} `json:"tags"`
		Count int `json:"count"`
	}
	decodeResult(t, r, &v)
	if v.Count != 2 || len(v.Tags) != 2 {
		t.Fatalf("count = %d, tags = %v", v.Count, v.Tags)
	}
	if v.Tags[0].Tag != "admin" || v.Tags[0].Count != 1 {
		t.Errorf("first tag = %+v", v.Tags[0])
	}
	if v.Tags[1].Tag != "work" || v.Tags[1].Count != 2 {
		t.Errorf("second tag = %+v", v.Tags[1])
	}
}

func TestSyncNow_AppliesRemoteChanges(t *testing.T) {
	srv, store := testServer(t, testutil.Note("n1", "existing"))

	n, _ := store.CreateNote(context.Background(), models.Note{Content: "made elsewhere"})

	r := callTool(t, srv, "sync_now", map[string]interface{}{})
	var v struct {
		Success      bool `json:"success"`
		NotesTouched int  `json:"notes_touched"`
	}
	decodeResult(t, r, &v)
	if !v.Success || v.NotesTouched != 1 {
		t.Errorf("sync result = %+v", v)
	}

	r = callTool(t, srv, "get_note", map[string]interface{}{"note_id": n.ID})
	var got noteView
	decodeResult(t, r, &got)
	if got.Content != "made elsewhere" {
		t.Errorf("content = %q", got.Content)
	}
}

func TestSyncNow_InitializesEmptyCache(t *testing.T) {
	store := testutil.SeededStore(testutil.Note("n1", "hello"))
	c := cache.New(store, testutil.Logger(), cache.Options{})
	srv := New(store, c, nil, Options{})

	r := callTool(t, srv, "sync_now", map[string]interface{}{})
	var v struct {
		Success     bool `json:"success"`
		Initialized bool `json:"initialized"`
		Notes       int  `json:"notes"`
	}
	decodeResult(t, r, &v)
	if !v.Success || !v.Initialized || v.Notes != 1 {
		t.Errorf("sync result = %+v", v)
	}
	if c.State() != cache.StateReady {
		t.Errorf("cache state = %s", c.State())
	}
}

func TestNoteResource(t *testing.T) {
	srv, _ := testServer(t, testutil.Note("n1", "resource body", "tag1"))

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "note://n1"
	contents, err := srv.readNoteResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents[0] = %T", contents[0])
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("mime = %q", tc.MIMEType)
	}
	var v noteView
	if err := json.Unmarshal([]byte(tc.Text), &v); err != nil {
		t.Fatal(err)
	}
	if v.ID != "n1" || v.Content != "resource body" {
		t.Errorf("note = %+v", v)
	}
}

func TestNoteResource_Missing(t *testing.T) {
	srv, _ := testServer(t)
	req := mcp.ReadResourceRequest{}
	req.Params.URI = "note://nope"
	if _, err := srv.readNoteResource(context.Background(), req); err == nil {
		t.Error("expected error for unknown note")
	}
}

func TestRecentNotesResource(t *testing.T) {
	srv, _ := testServer(t,
		testutil.NoteAt("old", "first", testutil.BaseTime),
		testutil.NoteAt("new", "second", testutil.BaseTime.Add(time.Hour)),
	)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "notes://recent"
	contents, err := srv.readRecentResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	var views []noteView
	if err := json.Unmarshal([]byte(tc.Text), &views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].ID != "new" {
		t.Errorf("recent = %+v", views)
	}
}

func TestSearchSyntaxResource(t *testing.T) {
	srv, _ := testServer(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = "muninn://search-syntax"
	contents, err := srv.readSyntaxResource(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	tc := contents[0].(mcp.TextResourceContents)
	if tc.MIMEType != "text/markdown" {
		t.Errorf("mime = %q", tc.MIMEType)
	}
	for _, want := range []string{"AND", "OR", "NOT", "untagged"} {
		if !strings.Contains(tc.Text, want) {
			t.Errorf("syntax guide missing %q", want)
		}
	}
}
