// Package cache maintains the in-memory replica of the remote note store:
// the note table, the derived tag index, and the sync cursor, plus the
// listing and search operations answered from it without a network round
// trip.
//
// Mutations run under a single writer mutex and publish a new immutable
// snapshot behind an atomic pointer. Reads load the current snapshot and
// never block a writer.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/remote"
)

// State is the cache lifecycle state.
type State int32

const (
	StateEmpty State = iota
	StateLoading
	StateReady
	StateSyncing
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateSyncing:
		return "syncing"
	}
	return "empty"
}

// snapshot is one immutable publication of the cache contents. A snapshot
// is never mutated after being stored; writers derive a new one.
type snapshot struct {
	notes  map[string]models.Note
	tags   tagIndex
	cursor string
}

func (s *snapshot) lookup(id string) (models.Note, bool) {
	n, ok := s.notes[id]
	if !ok {
		return models.Note{}, false
	}
	return n.Clone(), true
}

// Options tune a Cache. Zero values select the defaults.
type Options struct {
	// DefaultPageSize is used when a caller passes limit 0. Default 100.
	DefaultPageSize int
	// MaxResults caps any single page. Default 1000.
	MaxResults int
	// InitTimeout bounds the initial full load. Default 60s.
	InitTimeout time.Duration
	// RebuildThreshold is the change-set fraction of the table size at
	// which a sync rebuilds the tag index in full instead of updating it
	// incrementally. Default 0.5.
	RebuildThreshold float64
}

// Cache owns the local replica. Construct with New; one instance per
// remote account.
type Cache struct {
	client remote.Client
	log    *slog.Logger

	mu    sync.Mutex
	snap  atomic.Pointer[snapshot]
	state atomic.Int32
	sf    singleflight.Group

	lastSync atomic.Int64

	defaultLimit     int
	maxResults       int
	initTimeout      time.Duration
	rebuildThreshold float64
}

func New(client remote.Client, log *slog.Logger, opts Options) *Cache {
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		client:           client,
		log:              log,
		defaultLimit:     opts.DefaultPageSize,
		maxResults:       opts.MaxResults,
		initTimeout:      opts.InitTimeout,
		rebuildThreshold: opts.RebuildThreshold,
	}
	if c.defaultLimit <= 0 {
		c.defaultLimit = 100
	}
	if c.maxResults <= 0 {
		c.maxResults = 1000
	}
	if c.initTimeout <= 0 {
		c.initTimeout = 60 * time.Second
	}
	if c.rebuildThreshold <= 0 {
		c.rebuildThreshold = 0.5
	}
	c.snap.Store(&snapshot{notes: map[string]models.Note{}, tags: tagIndex{}})
	return c
}

// State reports the lifecycle state.
func (c *Cache) State() State { return State(c.state.Load()) }

func (c *Cache) setState(s State) { c.state.Store(int32(s)) }

// Initialize loads the full note table from the remote store. It is a
// no-op on a ready cache, and concurrent callers against an empty cache
// coalesce onto a single remote list call, each receiving its result. On
// failure the cache stays empty and Initialize may be retried.
func (c *Cache) Initialize(ctx context.Context) error {
	if c.State() == StateReady {
		return nil
	}
	ch := c.sf.DoChan("initialize", func() (any, error) {
		// The load outlives any single waiter; it is bounded by the
		// configured timeout instead of the first caller's context.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.initTimeout)
		defer cancel()
		return nil, c.load(lctx)
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		return res.Err
	}
}

func (c *Cache) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() == StateReady {
		return nil
	}
	c.setState(StateLoading)

	notes, status := c.client.ListNotes(ctx)
	if status != remote.StatusOK {
		c.setState(StateEmpty)
		return statusErr("listing notes", status)
	}

	table := make(map[string]models.Note, len(notes))
	skipped := 0
	for _, n := range notes {
		if n.ID == "" {
			skipped++
			continue
		}
		table[n.ID] = n.Clone()
	}
	if skipped > 0 {
		c.log.Warn("skipped malformed note records during load", slog.Int("count", skipped))
	}

	c.snap.Store(&snapshot{notes: table, tags: buildTagIndex(table)})
	c.setState(StateReady)
	c.lastSync.Store(time.Now().Unix())
	c.log.Info("cache initialized", slog.Int("notes", len(table)))
	return nil
}

// Sync fetches the changes recorded after the current cursor and applies
// them in received order: tombstones remove notes, everything else upserts.
// It returns the number of notes touched. On failure the table, index, and
// cursor are left unchanged.
func (c *Cache) Sync(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State() != StateReady {
		return 0, apperr.Validation("cache is not ready; initialize it first")
	}
	c.setState(StateSyncing)
	defer c.setState(StateReady)

	snap := c.snap.Load()
	cursor, changes, status := c.client.ListChanges(ctx, snap.cursor, true)
	if status != remote.StatusOK {
		return 0, statusErr("listing changes", status)
	}

	// Rebuilding the index is cheaper than reconciling it entry by entry
	// once the change set is a large fraction of the table.
	rebuild := len(snap.notes) == 0 ||
		float64(len(changes)) >= c.rebuildThreshold*float64(len(snap.notes))

	notes := cloneNotes(snap.notes)
	var idx tagIndex
	if !rebuild {
		idx = snap.tags.clone()
	}

	touched, skipped := 0, 0
	for _, ch := range changes {
		if ch.ID == "" {
			skipped++
			continue
		}
		if ch.Tombstone {
			old, ok := notes[ch.ID]
			if !ok {
				continue
			}
			delete(notes, ch.ID)
			if !rebuild {
				idx.remove(ch.ID, old.Tags)
			}
			touched++
			continue
		}
		n := ch.Note
		if n.ID == "" {
			n.ID = ch.ID
		}
		old := notes[n.ID]
		notes[n.ID] = n.Clone()
		if !rebuild {
			idx.update(n.ID, old.Tags, n.Tags)
		}
		touched++
	}
	if skipped > 0 {
		c.log.Warn("skipped malformed change records", slog.Int("count", skipped))
	}
	if rebuild {
		idx = buildTagIndex(notes)
	}
	if cursor == "" {
		cursor = snap.cursor
	}

	c.snap.Store(&snapshot{notes: notes, tags: idx, cursor: cursor})
	c.lastSync.Store(time.Now().Unix())
	c.log.Debug("sync applied",
		slog.Int("changes", len(changes)),
		slog.Int("touched", touched),
		slog.Bool("rebuilt_index", rebuild))
	return touched, nil
}

// GetNote returns the note by id, fetching it from the remote store and
// inserting it opportunistically on a cache miss.
func (c *Cache) GetNote(ctx context.Context, id string) (models.Note, error) {
	if id == "" {
		return models.Note{}, apperr.Validation("note id must not be empty")
	}
	if n, ok := c.snap.Load().lookup(id); ok {
		return n, nil
	}

	n, status := c.client.GetNote(ctx, id)
	switch status {
	case remote.StatusOK:
	case remote.StatusNotFound:
		return models.Note{}, apperr.NotFound("note " + id + " not found")
	default:
		return models.Note{}, statusErr("fetching note "+id, status)
	}
	if n.ID == "" {
		return models.Note{}, apperr.Internal("remote returned a note without an id", nil)
	}
	c.applyUpsert(n)
	return n, nil
}

// ApplyCreate inserts a note that was just written through to the remote
// store, so reads reflect it before the next sync.
func (c *Cache) ApplyCreate(n models.Note) error {
	if n.ID == "" {
		return apperr.Internal("created note is missing an id", nil)
	}
	c.applyUpsert(n)
	c.log.Debug("applied local create", slog.String("note", n.ID))
	return nil
}

// ApplyUpdate replaces a note that was just written through to the remote
// store.
func (c *Cache) ApplyUpdate(n models.Note) error {
	if n.ID == "" {
		return apperr.Internal("updated note is missing an id", nil)
	}
	c.applyUpsert(n)
	c.log.Debug("applied local update", slog.String("note", n.ID))
	return nil
}

// ApplyDelete removes a note that was just trashed remotely. Deleting an
// id the cache does not hold is a no-op.
func (c *Cache) ApplyDelete(id string) error {
	if id == "" {
		return apperr.Validation("note id must not be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snap.Load()
	old, ok := snap.notes[id]
	if !ok {
		return nil
	}
	notes := cloneNotes(snap.notes)
	delete(notes, id)
	idx := snap.tags.clone()
	idx.remove(id, old.Tags)
	c.snap.Store(&snapshot{notes: notes, tags: idx, cursor: snap.cursor})
	c.log.Debug("applied local delete", slog.String("note", id))
	return nil
}

func (c *Cache) applyUpsert(n models.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snap.Load()
	notes := cloneNotes(snap.notes)
	old := notes[n.ID]
	notes[n.ID] = n.Clone()
	idx := snap.tags.clone()
	idx.update(n.ID, old.Tags, n.Tags)
	c.snap.Store(&snapshot{notes: notes, tags: idx, cursor: snap.cursor})
}

// TagCount pairs a tag with the number of cached notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Tags lists the tags currently in use, sorted ascending.
func (c *Cache) Tags() []TagCount {
	snap := c.snap.Load()
	out := make([]TagCount, 0, len(snap.tags))
	for _, tag := range snap.tags.list() {
		out = append(out, TagCount{Tag: tag, Count: len(snap.tags[tag])})
	}
	return out
}

// Stats is a point-in-time description of the cache for status surfaces.
type Stats struct {
	State     string
	Notes     int
	Tags      int
	CursorSet bool
	LastSync  time.Time
}

func (c *Cache) Stats() Stats {
	snap := c.snap.Load()
	st := Stats{
		State:     c.State().String(),
		Notes:     len(snap.notes),
		Tags:      len(snap.tags),
		CursorSet: snap.cursor != "",
	}
	if ts := c.lastSync.Load(); ts > 0 {
		st.LastSync = time.Unix(ts, 0)
	}
	return st
}

func cloneNotes(notes map[string]models.Note) map[string]models.Note {
	out := make(map[string]models.Note, len(notes)+1)
	for id, n := range notes {
		out[id] = n
	}
	return out
}

func statusErr(op string, status int) error {
	switch status {
	case remote.StatusBadPayload:
		return apperr.Internal(op+" returned an unusable payload", nil)
	case remote.StatusUnauthorized:
		return apperr.Authentication(op+" was rejected by the remote store", nil)
	}
	return apperr.Network(fmt.Sprintf("%s failed with status %d", op, status), nil)
}
