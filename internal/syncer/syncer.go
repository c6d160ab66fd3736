// Package syncer runs the periodic background synchronization of the
// note cache against the remote store.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/cache"
)

// ResultFunc is called after every sync attempt with the number of notes
// touched and the attempt's error, if any.
type ResultFunc func(notes int, err error)

// Options tune a Syncer. Zero values select the defaults.
type Options struct {
	// Interval is the period between sync attempts. Default 120s.
	Interval time.Duration
	// MinInterval floors the shortened delay used after a failed attempt.
	// Default 10s.
	MinInterval time.Duration
	// OnResult, if non-nil, observes every attempt.
	OnResult ResultFunc
}

// Syncer drives Cache.Sync on a timer. At most one loop runs per Syncer,
// whether entered through Run or Start.
type Syncer struct {
	cache    *cache.Cache
	log      *slog.Logger
	onResult ResultFunc

	interval atomic.Int64
	floor    time.Duration
	kick     chan struct{}

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(c *cache.Cache, log *slog.Logger, opts Options) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 120 * time.Second
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 10 * time.Second
	}
	s := &Syncer{
		cache:    c,
		log:      log,
		onResult: opts.OnResult,
		floor:    opts.MinInterval,
		kick:     make(chan struct{}, 1),
	}
	s.interval.Store(int64(opts.Interval))
	return s
}

// Interval reports the current period between sync attempts.
func (s *Syncer) Interval() time.Duration {
	return time.Duration(s.interval.Load())
}

// SetInterval changes the period between sync attempts, clamped to the
// configured minimum. A loop waiting on the old interval is rescheduled
// against the new one.
func (s *Syncer) SetInterval(d time.Duration) {
	if d < s.floor {
		d = s.floor
	}
	s.interval.Store(int64(d))
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// Run executes the sync loop until ctx is cancelled. It is the blocking
// form for callers running the loop inside an errgroup. A second Run
// while one is active returns a validation error.
func (s *Syncer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return apperr.Validation("sync loop is already running")
	}
	defer s.running.Store(false)

	s.log.Info("syncer: started", slog.Duration("interval", s.Interval()))

	timer := time.NewTimer(s.Interval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("syncer: stopped")
			return nil

		case <-s.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.Interval())

		case <-timer.C:
			timer.Reset(s.tick(ctx))
		}
	}
}

// Start launches the loop in a background goroutine. Starting a running
// Syncer is a logged no-op.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.log.Warn("syncer: start ignored, already running")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go func() {
		defer close(done)
		if err := s.Run(ctx); err != nil {
			s.log.Error("syncer: loop exited", slog.String("error", err.Error()))
		}
	}()
}

// Stop cancels a loop launched by Start and waits for it to exit.
// Stopping a stopped Syncer is a no-op.
func (s *Syncer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// tick performs one sync attempt and returns the delay until the next one.
// An empty cache is initialized instead of synced, so a failed startup
// heals without operator action.
func (s *Syncer) tick(ctx context.Context) time.Duration {
	var (
		touched int
		err     error
	)
	if s.cache.State() != cache.StateReady {
		s.log.Info("syncer: cache not ready, initializing")
		err = s.cache.Initialize(ctx)
	} else {
		touched, err = s.cache.Sync(ctx)
	}
	if s.onResult != nil {
		s.onResult(touched, err)
	}

	if err != nil {
		if ctx.Err() != nil {
			return s.Interval()
		}
		retry := s.retryDelay()
		s.log.Warn("syncer: attempt failed",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", retry))
		return retry
	}

	if touched > 0 {
		s.log.Info("syncer: changes applied", slog.Int("notes", touched))
	} else {
		s.log.Debug("syncer: up to date")
	}
	return s.Interval()
}

func (s *Syncer) retryDelay() time.Duration {
	d := s.Interval() / 2
	if d < s.floor {
		d = s.floor
	}
	return d
}
