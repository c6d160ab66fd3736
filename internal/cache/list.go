package cache

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/search"
)

// UntaggedTag is the virtual tag selecting notes whose tag set is empty.
// It is matched case-insensitively and never stored in the index.
const UntaggedTag = "untagged"

// SortKey selects the ordering of a listing.
type SortKey string

const (
	SortModified SortKey = "modified" // default, descending
	SortCreated  SortKey = "created"  // descending
	SortTitle    SortKey = "title"    // first non-blank line, case-insensitive, ascending
	SortLength   SortKey = "length"   // content length, descending
)

// SortDirection overrides the per-key default direction.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ListOptions parameterize GetAllNotes. The zero value lists the first
// default-sized page of all notes, most recently modified first.
type ListOptions struct {
	Limit         int
	Offset        int
	TagFilter     []string
	SortBy        SortKey
	SortDirection SortDirection
	PinnedFirst   bool
}

// SearchOptions parameterize SearchNotes. From and To bound the modified
// time inclusively; zero values leave the bound open.
type SearchOptions struct {
	Query  string
	Limit  int
	Offset int
	Tags   []string
	From   time.Time
	To     time.Time
}

// Page is one window of an ordered result set. Total counts the results
// after filtering, before pagination.
type Page struct {
	Notes []models.Note
	Total int
	Info  PageInfo
}

// GetAllNotes filters, sorts, then paginates the cached notes. Notes
// flagged deleted are never listed. Tag filters apply conjunctively and
// honor the virtual untagged tag.
func (c *Cache) GetAllNotes(opts ListOptions) (Page, error) {
	limit, offset, err := c.window(opts.Limit, opts.Offset)
	if err != nil {
		return Page{}, err
	}
	key, dir, err := normalizeSort(opts.SortBy, opts.SortDirection)
	if err != nil {
		return Page{}, err
	}

	snap := c.snap.Load()
	candidates, restricted := snap.idsForTags(opts.TagFilter)

	notes := make([]models.Note, 0, len(snap.notes))
	for id, n := range snap.notes {
		if n.Deleted {
			continue
		}
		if restricted {
			if _, ok := candidates[id]; !ok {
				continue
			}
		}
		notes = append(notes, n)
	}

	sortNotes(notes, key, dir, opts.PinnedFirst)
	total := len(notes)
	return Page{
		Notes: pageWindow(notes, limit, offset),
		Total: total,
		Info:  NewPageInfo(total, limit, offset),
	}, nil
}

// SearchNotes evaluates a boolean query against the cached notes, applies
// tag and date filters conjunctively, ranks matches by relevance score
// descending, then paginates. An empty query matches nothing.
func (c *Cache) SearchNotes(opts SearchOptions) (Page, error) {
	limit, offset, err := c.window(opts.Limit, opts.Offset)
	if err != nil {
		return Page{}, err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return Page{}, apperr.Validation("date range end precedes its start")
	}

	q := search.Parse(opts.Query)
	if q.IsEmpty() {
		return Page{Notes: []models.Note{}, Info: NewPageInfo(0, limit, offset)}, nil
	}

	snap := c.snap.Load()
	candidates, restricted := snap.idsForTags(opts.Tags)

	type hit struct {
		note  models.Note
		score int
	}
	var hits []hit
	for id, n := range snap.notes {
		if n.Deleted {
			continue
		}
		if restricted {
			if _, ok := candidates[id]; !ok {
				continue
			}
		}
		if !opts.From.IsZero() && n.ModifiedAt.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && n.ModifiedAt.After(opts.To) {
			continue
		}
		matched, score := q.Eval(n.Content)
		if !matched {
			continue
		}
		hits = append(hits, hit{note: n, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		if !hits[i].note.ModifiedAt.Equal(hits[j].note.ModifiedAt) {
			return hits[i].note.ModifiedAt.After(hits[j].note.ModifiedAt)
		}
		return hits[i].note.ID < hits[j].note.ID
	})

	ranked := make([]models.Note, len(hits))
	for i, h := range hits {
		ranked[i] = h.note
	}
	total := len(ranked)
	return Page{
		Notes: pageWindow(ranked, limit, offset),
		Total: total,
		Info:  NewPageInfo(total, limit, offset),
	}, nil
}

// window validates and resolves a (limit, offset) pair: negative values
// are rejected, limit 0 selects the default page size, and the result is
// capped at MaxResults.
func (c *Cache) window(limit, offset int) (int, int, error) {
	if limit < 0 {
		return 0, 0, apperr.Validation("limit must not be negative")
	}
	if offset < 0 {
		return 0, 0, apperr.Validation("offset must not be negative")
	}
	if limit == 0 {
		limit = c.defaultLimit
	}
	if limit > c.maxResults {
		limit = c.maxResults
	}
	return limit, offset, nil
}

func normalizeSort(key SortKey, dir SortDirection) (SortKey, SortDirection, error) {
	switch key {
	case "":
		key = SortModified
	case SortModified, SortCreated, SortTitle, SortLength:
	default:
		return "", "", apperr.Validation("unknown sort key: " + string(key))
	}
	switch dir {
	case "":
		if key == SortTitle {
			dir = SortAsc
		} else {
			dir = SortDesc
		}
	case SortAsc, SortDesc:
	default:
		return "", "", apperr.Validation("unknown sort direction: " + string(dir))
	}
	return key, dir, nil
}

// sortNotes orders notes by key and direction, with ties broken by id for
// a deterministic order. With pinnedFirst, pinned notes sort within their
// own group ahead of the rest regardless of key.
func sortNotes(notes []models.Note, key SortKey, dir SortDirection, pinnedFirst bool) {
	sort.Slice(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if pinnedFirst && a.Pinned != b.Pinned {
			return a.Pinned
		}
		cmp := compareNotes(a, b, key)
		if dir == SortDesc {
			cmp = -cmp
		}
		if cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})
}

func compareNotes(a, b models.Note, key SortKey) int {
	switch key {
	case SortCreated:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortTitle:
		return strings.Compare(titleKey(a), titleKey(b))
	case SortLength:
		return len(a.Content) - len(b.Content)
	}
	return a.ModifiedAt.Compare(b.ModifiedAt)
}

func titleKey(n models.Note) string {
	return strings.ToLower(n.Title(0, ""))
}

// idsForTags resolves a conjunctive tag filter to a candidate id set via
// the index. The second return value is false when no filtering applies.
func (s *snapshot) idsForTags(filter []string) (map[string]struct{}, bool) {
	if len(filter) == 0 {
		return nil, false
	}
	var result map[string]struct{}
	for _, tag := range filter {
		if tag == "" {
			continue
		}
		var ids map[string]struct{}
		if strings.EqualFold(tag, UntaggedTag) {
			ids = s.tags.untagged(s.notes)
		} else {
			ids = s.tags.ids(tag)
		}
		if result == nil {
			result = make(map[string]struct{}, len(ids))
			for id := range ids {
				result[id] = struct{}{}
			}
			continue
		}
		for id := range result {
			if _, ok := ids[id]; !ok {
				delete(result, id)
			}
		}
	}
	if result == nil {
		return nil, false
	}
	return result, true
}

func pageWindow(notes []models.Note, limit, offset int) []models.Note {
	if offset >= len(notes) {
		return []models.Note{}
	}
	end := min(offset+limit, len(notes))
	out := make([]models.Note, 0, end-offset)
	for _, n := range notes[offset:end] {
		out = append(out, n.Clone())
	}
	return out
}
