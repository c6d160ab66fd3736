// Package stats collects process-local runtime counters for the status
// surfaces. There is no external metrics system; counters live in memory
// and reset with the process.
package stats

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector accumulates counters from the MCP tool layer, the HTTP API,
// and the background synchronizer. All methods are safe for concurrent use.
type Collector struct {
	started time.Time

	apiRequests  atomic.Int64
	syncCycles   atomic.Int64
	syncFailures atomic.Int64
	notesSynced  atomic.Int64

	mu        sync.Mutex
	toolCalls map[string]int64
}

func NewCollector() *Collector {
	return &Collector{
		started:   time.Now(),
		toolCalls: make(map[string]int64),
	}
}

// ToolCalled records one invocation of the named MCP tool.
func (c *Collector) ToolCalled(name string) {
	c.mu.Lock()
	c.toolCalls[name]++
	c.mu.Unlock()
}

// APIRequest records one HTTP API request.
func (c *Collector) APIRequest() {
	c.apiRequests.Add(1)
}

// SyncResult records the outcome of one synchronizer cycle.
func (c *Collector) SyncResult(notes int, err error) {
	c.syncCycles.Add(1)
	if err != nil {
		c.syncFailures.Add(1)
		return
	}
	c.notesSynced.Add(int64(notes))
}

// Snapshot is a point-in-time copy of the collected counters.
type Snapshot struct {
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	APIRequests   int64            `json:"api_requests"`
	SyncCycles    int64            `json:"sync_cycles"`
	SyncFailures  int64            `json:"sync_failures"`
	NotesSynced   int64            `json:"notes_synced"`
	ToolCalls     map[string]int64 `json:"tool_calls"`
}

func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	tools := make(map[string]int64, len(c.toolCalls))
	for name, n := range c.toolCalls {
		tools[name] = n
	}
	c.mu.Unlock()

	return Snapshot{
		StartedAt:     c.started,
		UptimeSeconds: int64(time.Since(c.started).Seconds()),
		APIRequests:   c.apiRequests.Load(),
		SyncCycles:    c.syncCycles.Load(),
		SyncFailures:  c.syncFailures.Load(),
		NotesSynced:   c.notesSynced.Load(),
		ToolCalls:     tools,
	}
}
