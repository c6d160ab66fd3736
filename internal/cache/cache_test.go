package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
	"github.com/starford/muninn/internal/remote"
)

// fakeClient is a scripted remote store for cache tests. Every field with
// a Status suffix defaults to success when left zero.
type fakeClient struct {
	mu    sync.Mutex
	notes []models.Note

	listStatus int
	listCalls  atomic.Int64
	onList     func()

	changes       []models.Change
	changesCursor string
	changesStatus int
	changesCalls  atomic.Int64

	getNotes  map[string]models.Note
	getStatus int
	getCalls  atomic.Int64
}

func (f *fakeClient) ListNotes(context.Context) ([]models.Note, int) {
	f.listCalls.Add(1)
	if f.onList != nil {
		f.onList()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listStatus != remote.StatusOK {
		return nil, f.listStatus
	}
	out := make([]models.Note, len(f.notes))
	copy(out, f.notes)
	return out, remote.StatusOK
}

func (f *fakeClient) ListChanges(context.Context, string, bool) (string, []models.Change, int) {
	f.changesCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.changesStatus != remote.StatusOK {
		return "", nil, f.changesStatus
	}
	cursor := f.changesCursor
	if cursor == "" {
		cursor = "cursor-1"
	}
	return cursor, f.changes, remote.StatusOK
}

func (f *fakeClient) GetNote(_ context.Context, id string) (models.Note, int) {
	f.getCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getStatus != remote.StatusOK {
		return models.Note{}, f.getStatus
	}
	n, ok := f.getNotes[id]
	if !ok {
		return models.Note{}, remote.StatusNotFound
	}
	return n.Clone(), remote.StatusOK
}

func (f *fakeClient) CreateNote(_ context.Context, n models.Note) (models.Note, int) {
	return n, remote.StatusOK
}

func (f *fakeClient) UpdateNote(_ context.Context, n models.Note) (models.Note, int) {
	return n, remote.StatusOK
}

func (f *fakeClient) TrashNote(context.Context, string) int { return remote.StatusOK }

func (f *fakeClient) setChanges(cursor string, changes ...models.Change) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changesCursor = cursor
	f.changes = changes
}

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func note(id, content string, tags ...string) models.Note {
	return models.Note{
		ID:         id,
		Content:    content,
		Tags:       tags,
		CreatedAt:  baseTime,
		ModifiedAt: baseTime,
		Version:    1,
	}
}

func readyCache(t *testing.T, f *fakeClient) *Cache {
	t.Helper()
	c := New(f, nil, Options{})
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return c
}

func hasNote(t *testing.T, c *Cache, id string) bool {
	t.Helper()
	page, err := c.GetAllNotes(ListOptions{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, n := range page.Notes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func hasTag(c *Cache, tag string) bool {
	for _, tc := range c.Tags() {
		if tc.Tag == tag {
			return true
		}
	}
	return false
}

func TestInitialize_LoadsTableAndIndex(t *testing.T) {
	f := &fakeClient{notes: []models.Note{
		note("a", "alpha", "work"),
		note("b", "beta", "work", "home"),
	}}
	c := readyCache(t, f)

	if c.State() != StateReady {
		t.Errorf("state = %v, want ready", c.State())
	}
	st := c.Stats()
	if st.Notes != 2 || st.Tags != 2 {
		t.Errorf("stats = %+v, want 2 notes and 2 tags", st)
	}
	if !hasTag(c, "home") || !hasTag(c, "work") {
		t.Errorf("tags = %v", c.Tags())
	}
}

func TestInitialize_FailureLeavesCacheEmptyAndRetriable(t *testing.T) {
	f := &fakeClient{listStatus: remote.StatusError}
	c := New(f, nil, Options{})

	err := c.Initialize(context.Background())
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v, want a network error", err)
	}
	if c.State() != StateEmpty {
		t.Errorf("state = %v, want empty", c.State())
	}

	f.mu.Lock()
	f.listStatus = remote.StatusOK
	f.notes = []models.Note{note("a", "alpha")}
	f.mu.Unlock()

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if c.State() != StateReady {
		t.Errorf("state = %v, want ready after retry", c.State())
	}
}

func TestInitialize_ConcurrentCallersShareOneLoad(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f := &fakeClient{
		notes:  []models.Note{note("a", "alpha")},
		onList: func() { once.Do(func() { close(entered) }); <-release },
	}
	c := New(f, nil, Options{})

	const callers = 5
	errs := make(chan error, callers)
	go func() { errs <- c.Initialize(context.Background()) }()
	<-entered
	for i := 1; i < callers; i++ {
		go func() { errs <- c.Initialize(context.Background()) }()
	}
	// Give the late callers time to join the in-progress load.
	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < callers; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := f.listCalls.Load(); got != 1 {
		t.Errorf("ListNotes calls = %d, want 1", got)
	}
}

func TestInitialize_NoopWhenReady(t *testing.T) {
	f := &fakeClient{notes: []models.Note{note("a", "alpha")}}
	c := readyCache(t, f)

	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("second initialize: %v", err)
	}
	if got := f.listCalls.Load(); got != 1 {
		t.Errorf("ListNotes calls = %d, want 1", got)
	}
}

func TestSync_RequiresReady(t *testing.T) {
	c := New(&fakeClient{}, nil, Options{})
	if _, err := c.Sync(context.Background()); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want a validation error", err)
	}
}

func TestSync_AppliesChangesInOrder(t *testing.T) {
	f := &fakeClient{notes: []models.Note{
		note("a", "alpha", "work"),
		note("b", "beta", "home"),
	}}
	c := readyCache(t, f)

	updated := note("b", "beta v2", "home", "urgent")
	created := note("c", "gamma", "work")
	f.setChanges("cursor-2",
		models.Change{ID: "a", Tombstone: true},
		models.Change{ID: "b", Note: updated},
		models.Change{ID: "c", Note: created},
	)

	touched, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if touched != 3 {
		t.Errorf("touched = %d, want 3", touched)
	}
	if hasNote(t, c, "a") {
		t.Errorf("tombstoned note still listed")
	}
	if !hasNote(t, c, "c") {
		t.Errorf("created note not listed")
	}
	got, err := c.GetNote(context.Background(), "b")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if got.Content != "beta v2" || !got.HasTag("urgent") {
		t.Errorf("b = %+v, want updated content and tags", got)
	}
	if !c.Stats().CursorSet {
		t.Errorf("cursor not advanced")
	}
}

func TestSync_TombstoneBeforeRecreateIsNotLost(t *testing.T) {
	f := &fakeClient{notes: []models.Note{note("x", "first life", "work")}}
	c := readyCache(t, f)

	// Resurrect then redelete: the final tombstone must win.
	f.setChanges("cursor-2",
		models.Change{ID: "x", Tombstone: true},
		models.Change{ID: "x", Note: note("x", "second life", "work")},
		models.Change{ID: "x", Tombstone: true},
	)
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if hasNote(t, c, "x") {
		t.Errorf("redeleted note still listed")
	}

	// Delete then recreate within one batch: the recreation must survive.
	f.setChanges("cursor-3",
		models.Change{ID: "y", Note: note("y", "born", "home")},
		models.Change{ID: "y", Tombstone: true},
		models.Change{ID: "y", Note: note("y", "reborn", "home")},
	)
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if !hasNote(t, c, "y") {
		t.Errorf("recreated note missing")
	}
}

func TestSync_TombstoneForPinnedNoteClearsTableAndIndex(t *testing.T) {
	pinned := note("p", "pinned note", "keep")
	pinned.Pinned = true
	f := &fakeClient{notes: []models.Note{pinned, note("q", "other", "work")}}
	c := readyCache(t, f)

	f.setChanges("cursor-2", models.Change{ID: "p", Tombstone: true})
	if _, err := c.Sync(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if hasNote(t, c, "p") {
		t.Errorf("tombstoned pinned note still in table")
	}
	if hasTag(c, "keep") {
		t.Errorf("tag of tombstoned note still indexed")
	}
}

func TestSync_FailureLeavesEverythingUnchanged(t *testing.T) {
	f := &fakeClient{notes: []models.Note{note("a", "alpha", "work")}}
	c := readyCache(t, f)
	before := c.Stats()

	f.mu.Lock()
	f.changesStatus = remote.StatusError
	f.mu.Unlock()

	_, err := c.Sync(context.Background())
	if !errors.Is(err, apperr.ErrNetwork) {
		t.Fatalf("err = %v, want a network error", err)
	}
	after := c.Stats()
	if after.Notes != before.Notes || after.Tags != before.Tags || after.CursorSet != before.CursorSet {
		t.Errorf("stats changed across failed sync: before %+v, after %+v", before, after)
	}
	if c.State() != StateReady {
		t.Errorf("state = %v, want ready", c.State())
	}
}

func TestSync_SkipsMalformedRecords(t *testing.T) {
	f := &fakeClient{notes: []models.Note{note("a", "alpha")}}
	c := readyCache(t, f)

	f.setChanges("cursor-2",
		models.Change{}, // missing id
		models.Change{ID: "b", Note: note("b", "beta")},
	)
	touched, err := c.Sync(context.Background())
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if touched != 1 {
		t.Errorf("touched = %d, want 1", touched)
	}
	if !hasNote(t, c, "b") {
		t.Errorf("valid record was not applied")
	}
}

func TestGetNote_MissFetchesAndInserts(t *testing.T) {
	f := &fakeClient{
		notes:    []models.Note{note("a", "alpha")},
		getNotes: map[string]models.Note{"z": note("z", "fetched", "inbox")},
	}
	c := readyCache(t, f)

	got, err := c.GetNote(context.Background(), "z")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "fetched" {
		t.Errorf("content = %q", got.Content)
	}
	// The opportunistic insert serves the second read from the cache.
	if _, err := c.GetNote(context.Background(), "z"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if calls := f.getCalls.Load(); calls != 1 {
		t.Errorf("remote GetNote calls = %d, want 1", calls)
	}
	if !hasTag(c, "inbox") {
		t.Errorf("inserted note's tag not indexed")
	}
}

func TestGetNote_AbsentEverywhereIsNotFound(t *testing.T) {
	c := readyCache(t, &fakeClient{})
	_, err := c.GetNote(context.Background(), "ghost")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestGetNote_EmptyIDIsValidationError(t *testing.T) {
	c := readyCache(t, &fakeClient{})
	if _, err := c.GetNote(context.Background(), ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want a validation error", err)
	}
}

func TestGetNote_RoundTripPreservesContentAndTags(t *testing.T) {
	c := readyCache(t, &fakeClient{})
	written := note("n1", "the content", "work", "todo")
	if err := c.ApplyCreate(written); err != nil {
		t.Fatalf("apply create: %v", err)
	}
	got, err := c.GetNote(context.Background(), "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != written.Content {
		t.Errorf("content = %q, want %q", got.Content, written.Content)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "work" || got.Tags[1] != "todo" {
		t.Errorf("tags = %v, want %v", got.Tags, written.Tags)
	}
}

func TestApplyMutations_VisibleBeforeNextSync(t *testing.T) {
	c := readyCache(t, &fakeClient{})

	if err := c.ApplyCreate(note("n1", "draft", "inbox")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !hasNote(t, c, "n1") || !hasTag(c, "inbox") {
		t.Errorf("create not visible")
	}

	if err := c.ApplyUpdate(note("n1", "draft v2", "archive")); err != nil {
		t.Fatalf("update: %v", err)
	}
	if hasTag(c, "inbox") {
		t.Errorf("orphaned tag survived update")
	}
	if !hasTag(c, "archive") {
		t.Errorf("new tag not indexed")
	}

	if err := c.ApplyDelete("n1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hasNote(t, c, "n1") || hasTag(c, "archive") {
		t.Errorf("delete not applied to table and index")
	}
	// Idempotent.
	if err := c.ApplyDelete("n1"); err != nil {
		t.Errorf("repeated delete: %v", err)
	}
}

func TestApplyCreate_MissingIDIsInternalError(t *testing.T) {
	c := readyCache(t, &fakeClient{})
	if err := c.ApplyCreate(models.Note{Content: "no id"}); !errors.Is(err, apperr.ErrInternal) {
		t.Errorf("err = %v, want an internal error", err)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	c := readyCache(t, &fakeClient{notes: []models.Note{note("seed", "seed", "work")}})

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, err := c.GetAllNotes(ListOptions{}); err != nil {
					t.Errorf("list: %v", err)
					return
				}
				c.Tags()
			}
		}()
	}

	for i := 0; i < 200; i++ {
		id := string(rune('a' + i%26))
		if err := c.ApplyCreate(note(id, "content "+id, "work")); err != nil {
			t.Errorf("create: %v", err)
		}
		if i%3 == 0 {
			_ = c.ApplyDelete(id)
		}
	}
	close(stop)
	wg.Wait()
}
