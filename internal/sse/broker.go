// Package sse implements the Server-Sent Events broker behind /api/events,
// streaming cache activity to monitoring clients.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type noteEventReq struct {
	kind string
	id   string
}

type syncResultReq struct {
	notes  int
	failed bool
	errMsg string
}

// Broker manages SSE client connections and broadcasts cache activity.
//
// Concurrency model: a single internal event loop (goroutine) owns mutable
// state (clients + status throttle timestamp). Public methods communicate
// with this loop through channels, so no mutexes are required.
type Broker struct {
	statusMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	noteEventCh   chan noteEventReq
	syncResultCh  chan syncResultReq
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker. statusThrottle bounds how often a
// status.changed event trails the note and sync events, so clients that
// refetch /api/status on it are not stampeded by write bursts.
func NewBroker(statusThrottle time.Duration) *Broker {
	if statusThrottle <= 0 {
		statusThrottle = 2 * time.Second
	}

	b := &Broker{
		statusMin:     statusThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		noteEventCh:   make(chan noteEventReq, 256),
		syncResultCh:  make(chan syncResultReq, 64),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// send delivers v to ch unless the broker has stopped. Used by all public
// methods so that none of them can block past Close.
func send[T any](b *Broker, ch chan<- T, v T) {
	if b.closed.Load() {
		return
	}
	select {
	case ch <- v:
	case <-b.stopped:
	}
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastStatus time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Client buffer full; skip to avoid blocking broker loop.
			}
		}
	}

	// statusChanged emits the throttled refresh signal for status views.
	statusChanged := func() {
		now := time.Now()
		if now.Sub(lastStatus) >= b.statusMin {
			lastStatus = now
			broadcast(Event{Type: "status.changed", Data: map[string]string{}})
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case req := <-b.noteEventCh:
			data := map[string]string{"id": req.id}
			switch req.kind {
			case "created":
				broadcast(Event{Type: "note.created", Data: data})
			case "updated":
				broadcast(Event{Type: "note.updated", Data: data})
			case "deleted":
				broadcast(Event{Type: "note.deleted", Data: data})
			}
			statusChanged()

		case req := <-b.syncResultCh:
			if req.failed {
				broadcast(Event{Type: "sync.failed", Data: map[string]string{"error": req.errMsg}})
			} else {
				broadcast(Event{Type: "sync.completed", Data: map[string]int{"notes": req.notes}})
				if req.notes > 0 {
					statusChanged()
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	send(b, b.unsubscribeCh, ch)
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	resp := make(chan int, 1)
	send(b, b.countReqCh, resp)

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	send(b, b.publishCh, event)
}

// PublishNoteEvent publishes a note mutation ("created", "updated" or
// "deleted") followed by a throttled status.changed event.
func (b *Broker) PublishNoteEvent(kind, id string) {
	send(b, b.noteEventCh, noteEventReq{kind: kind, id: id})
}

// PublishSyncResult publishes the outcome of one background sync cycle:
// sync.completed with the number of changed notes, or sync.failed.
func (b *Broker) PublishSyncResult(notes int, err error) {
	req := syncResultReq{notes: notes}
	if err != nil {
		req.failed = true
		req.errMsg = err.Error()
	}
	send(b, b.syncResultCh, req)
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
