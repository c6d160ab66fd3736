package remote

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/muninn/internal/models"
)

// MemStore is an in-memory note store implementing Client. It backs tests
// and offline development runs. Every applied write is appended to a change
// journal; cursors are positions in that journal, so they never regress.
type MemStore struct {
	mu      sync.Mutex
	notes   map[string]models.Note
	journal []models.Change
	now     func() time.Time
}

var _ Client = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		notes: make(map[string]models.Note),
		now:   time.Now,
	}
}

// Seed installs notes as if they had been created remotely, journaling a
// create change for each so an empty-cursor ListChanges replays them.
func (m *MemStore) Seed(notes ...models.Note) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range notes {
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.Version == 0 {
			n.Version = 1
		}
		stored := n.Clone()
		m.notes[stored.ID] = stored
		m.journal = append(m.journal, models.Change{ID: stored.ID, Note: stored.Clone()})
	}
}

func (m *MemStore) ListNotes(_ context.Context) ([]models.Note, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Note, 0, len(m.notes))
	for _, n := range m.notes {
		out = append(out, n.Clone())
	}
	return out, StatusOK
}

func (m *MemStore) ListChanges(_ context.Context, cursor string, _ bool) (string, []models.Change, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos := 0
	if cursor != "" {
		p, err := strconv.Atoi(cursor)
		if err != nil || p < 0 || p > len(m.journal) {
			return "", nil, StatusError
		}
		pos = p
	}
	changes := make([]models.Change, 0, len(m.journal)-pos)
	for _, ch := range m.journal[pos:] {
		c := ch
		c.Note = ch.Note.Clone()
		changes = append(changes, c)
	}
	return strconv.Itoa(len(m.journal)), changes, StatusOK
}

func (m *MemStore) GetNote(_ context.Context, id string) (models.Note, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notes[id]
	if !ok {
		return models.Note{}, StatusNotFound
	}
	return n.Clone(), StatusOK
}

func (m *MemStore) CreateNote(_ context.Context, n models.Note) (models.Note, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := m.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.ModifiedAt = now
	n.Version = 1
	stored := n.Clone()
	m.notes[stored.ID] = stored
	m.journal = append(m.journal, models.Change{ID: stored.ID, Note: stored.Clone()})
	return stored.Clone(), StatusOK
}

func (m *MemStore) UpdateNote(_ context.Context, n models.Note) (models.Note, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.notes[n.ID]
	if !ok {
		return models.Note{}, StatusNotFound
	}
	current.Content = n.Content
	current.Tags = nil
	if n.Tags != nil {
		current.Tags = make([]string, len(n.Tags))
		copy(current.Tags, n.Tags)
	}
	current.Pinned = n.Pinned
	current.ModifiedAt = m.now()
	current.Version++
	m.notes[current.ID] = current
	m.journal = append(m.journal, models.Change{ID: current.ID, Note: current.Clone()})
	return current.Clone(), StatusOK
}

func (m *MemStore) TrashNote(_ context.Context, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notes[id]; !ok {
		return StatusNotFound
	}
	delete(m.notes, id)
	m.journal = append(m.journal, models.Change{ID: id, Tombstone: true})
	return StatusOK
}

// Len reports the number of live notes, for test assertions.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notes)
}
