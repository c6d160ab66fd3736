package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/cache"
	"github.com/starford/muninn/internal/checksum"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/stats"
)

// Options tune note presentation in API responses. Zero values select the
// defaults.
type Options struct {
	// TitleMaxLength caps derived note titles. Default 30.
	TitleMaxLength int
	// SnippetMaxLength caps listing snippets. Default 100.
	SnippetMaxLength int
}

// Handler holds API route handlers.
type Handler struct {
	cache *cache.Cache
	stats *stats.Collector

	titleMax   int
	snippetMax int
}

// NewHandler creates a new Handler. A nil collector gets a fresh one.
func NewHandler(c *cache.Cache, collector *stats.Collector, opts Options) *Handler {
	if collector == nil {
		collector = stats.NewCollector()
	}
	h := &Handler{
		cache:      c,
		stats:      collector,
		titleMax:   opts.TitleMaxLength,
		snippetMax: opts.SnippetMaxLength,
	}
	if h.titleMax <= 0 {
		h.titleMax = 30
	}
	if h.snippetMax <= 0 {
		h.snippetMax = 100
	}
	return h
}

func (h *Handler) summary(n models.Note) NoteSummary {
	return NoteSummary{
		ID:         n.ID,
		Title:      n.Title(h.titleMax, n.ID),
		Snippet:    n.Snippet(h.snippetMax),
		Tags:       tagsOrEmpty(n.Tags),
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Pinned:     n.Pinned,
	}
}

func (h *Handler) summaries(notes []models.Note) []NoteSummary {
	out := make([]NoteSummary, 0, len(notes))
	for _, n := range notes {
		out = append(out, h.summary(n))
	}
	return out
}

func (h *Handler) detail(n models.Note) NoteDetail {
	return NoteDetail{
		ID:         n.ID,
		Title:      n.Title(h.titleMax, n.ID),
		Content:    n.Content,
		Tags:       tagsOrEmpty(n.Tags),
		CreatedAt:  n.CreatedAt,
		ModifiedAt: n.ModifiedAt,
		Pinned:     n.Pinned,
		Version:    n.Version,
	}
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// writeError maps classified errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNetwork):
		slog.Error(op+" failed", slog.String("error", err.Error()), slog.String("trace_id", apperr.TraceID(err)))
		writeJSON(w, http.StatusBadGateway, errorBody("remote store unreachable"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()), slog.String("trace_id", apperr.TraceID(err)))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// splitList splits a comma-separated query value, dropping blanks.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseDate accepts YYYY-MM-DD or a full RFC 3339 timestamp. endOfDay
// widens a date-only value to the last instant of that day, for inclusive
// upper bounds.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be YYYY-MM-DD or RFC 3339")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// Status handles GET /api/status.
//
//	@Summary		Cache state and process counters
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	cs := h.cache.Stats()
	writeJSON(w, http.StatusOK, StatusResponse{
		State:     cs.State,
		Notes:     cs.Notes,
		Tags:      cs.Tags,
		CursorSet: cs.CursorSet,
		LastSync:  cs.LastSync,
		Runtime:   h.stats.Snapshot(),
	})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes with optional filtering, sorting, and pagination
//	@Tags			notes
//	@Produce		json
//	@Param			limit			query		int		false	"Page size"
//	@Param			offset			query		int		false	"Page offset"
//	@Param			tags			query		string	false	"Comma-separated tag filter; 'untagged' selects notes without tags"
//	@Param			sort_by			query		string	false	"Sort key"	Enums(modified, created, title, length)
//	@Param			sort_direction	query		string	false	"Sort direction"	Enums(asc, desc)
//	@Param			pinned_first	query		bool	false	"Group pinned notes first"
//	@Success		200				{object}	NoteListResponse
//	@Failure		400				{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	pinnedFirst, _ := strconv.ParseBool(q.Get("pinned_first"))

	page, err := h.cache.GetAllNotes(cache.ListOptions{
		Limit:         limit,
		Offset:        offset,
		TagFilter:     splitList(q.Get("tags")),
		SortBy:        cache.SortKey(q.Get("sort_by")),
		SortDirection: cache.SortDirection(q.Get("sort_direction")),
		PinnedFirst:   pinnedFirst,
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes:      h.summaries(page.Notes),
		Total:      page.Total,
		Pagination: page.Info,
	})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note by id
//	@Tags			notes
//	@Produce		json
//	@Param			id				path	string	true	"Note id"
//	@Param			If-None-Match	header	string	false	"Previously returned ETag"
//	@Success		200	{object}	NoteDetail
//	@Success		304	"Not modified"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	n, err := h.cache.GetNote(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}

	etag := checksum.ETag(n.Version, n.Content)
	w.Header().Set("ETag", etag)
	if checksum.Match(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	writeJSON(w, http.StatusOK, h.detail(n))
}

// Search handles GET /api/search.
//
//	@Summary		Boolean search across cached notes
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search query (AND, OR, NOT, quoted phrases)"
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			tags		query		string	false	"Comma-separated tag filter"
//	@Param			from_date	query		string	false	"Earliest modification date (YYYY-MM-DD or RFC 3339)"
//	@Param			to_date		query		string	false	"Latest modification date (YYYY-MM-DD or RFC 3339)"
//	@Success		200			{object}	SearchResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	from, err := parseDate(q.Get("from_date"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("from_date "+err.Error()))
		return
	}
	to, err := parseDate(q.Get("to_date"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("to_date "+err.Error()))
		return
	}

	page, err := h.cache.SearchNotes(cache.SearchOptions{
		Query:  query,
		Limit:  limit,
		Offset: offset,
		Tags:   splitList(q.Get("tags")),
		From:   from,
		To:     to,
	})
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Query:      query,
		Results:    h.summaries(page.Notes),
		Total:      page.Total,
		Pagination: page.Info,
	})
}

// Tags handles GET /api/tags.
//
//	@Summary		List tags in use with note counts
//	@Tags			tags
//	@Produce		json
//	@Success		200	{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	counts := h.cache.Tags()
	writeJSON(w, http.StatusOK, TagListResponse{Tags: counts, Count: len(counts)})
}
