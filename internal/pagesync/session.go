package pagesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

var (
	// ErrNoTenant is returned by Save before any business was opened.
	ErrNoTenant = errors.New("pagesync: no business opened")
	// ErrSessionSwitched is returned by a save issued for a business the session has since left.
	ErrSessionSwitched = errors.New("pagesync: session switched business before save")
	// ErrLoadFailed is returned by Save when the remote record could not be read, so
	// writing would overwrite data that was never seen.
	ErrLoadFailed = errors.New("pagesync: remote settings were not loaded")
)

// State is the load lifecycle of a session.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
)

// SessionOptions tunes load/save behavior.
type SessionOptions struct {
	LoadTimeout time.Duration
	SaveTimeout time.Duration
	Autosave    bool
}

// Session binds one editing console to the settings of its active tenant.
// Switching tenants replaces the store outright and invalidates any load still
// in flight for the previous tenant.
type Session struct {
	syncer *Synchronizer
	opts   SessionOptions
	logger *logging.Logger

	generation atomic.Uint64

	mu          sync.Mutex
	businessID  string
	store       *bookingpage.Store
	state       State
	loadDone    chan struct{}
	lastLoadErr error
	saving      int
	unsubscribe func()
	persisted   int64
	hasSaved    bool

	// saveMu serializes saves and load commits.
	saveMu sync.Mutex

	lmu       sync.Mutex
	listeners map[int]func(bookingpage.Change)
	nextID    int
}

// NewSession creates an uninitialized session.
func NewSession(s *Synchronizer, opts SessionOptions, logger *logging.Logger) *Session {
	if s == nil {
		panic("pagesync: synchronizer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 10 * time.Second
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}
	return &Session{
		syncer:    s,
		opts:      opts,
		logger:    logger,
		state:     StateUninitialized,
		listeners: make(map[int]func(bookingpage.Change)),
	}
}

// Open makes businessID the active tenant. The store is reset to defaults,
// hydrated from the local cache when possible, and reconciled with the remote
// record in the background. The returned channel closes when that load settles.
// The background load is not tied to ctx cancellation.
func (s *Session) Open(ctx context.Context, businessID string) <-chan struct{} {
	store := bookingpage.NewStore(businessID)
	done := make(chan struct{})

	s.mu.Lock()
	gen := s.generation.Add(1)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.businessID = businessID
	s.store = store
	s.state = StateLoading
	s.loadDone = done
	s.lastLoadErr = nil
	s.persisted = 0
	s.hasSaved = false
	s.unsubscribe = store.Subscribe(func(c bookingpage.Change) { s.forward(gen, c) })
	s.mu.Unlock()

	if cached, ok := s.syncer.Hydrate(ctx, businessID); ok {
		if _, err := store.Replace(cached); err != nil {
			s.logger.Warn("discarding cached settings", "business_id", businessID, "error", err)
			s.notify(bookingpage.Change{Settings: store.Snapshot(), Source: bookingpage.SourceReload})
		}
	} else {
		s.notify(bookingpage.Change{Settings: store.Snapshot(), Source: bookingpage.SourceReload})
	}

	loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.LoadTimeout)
	go func() {
		defer close(done)
		defer cancel()
		s.reconcile(loadCtx, gen, businessID)
	}()
	return done
}

func (s *Session) reconcile(ctx context.Context, gen uint64, businessID string) {
	settings, err := s.syncer.Fetch(ctx, businessID)
	switch {
	case errors.Is(err, ErrNotFound):
		s.finishLoad(gen, nil)
	case err != nil:
		s.logger.Error("remote settings load failed", "business_id", businessID, "error", err)
		s.finishLoad(gen, err)
	default:
		s.commitLoad(ctx, gen, businessID, settings)
	}
}

func (s *Session) commitLoad(ctx context.Context, gen uint64, businessID string, settings bookingpage.Settings) {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	stale := s.generation.Load() != gen || s.businessID != businessID
	store := s.store
	s.mu.Unlock()
	if stale {
		s.syncer.metrics.ObserveStaleLoad()
		s.logger.Debug("discarding stale settings load", "business_id", businessID)
		return
	}

	version, err := store.Replace(settings)
	if err != nil {
		s.logger.Error("remote settings rejected", "business_id", businessID, "error", err)
		s.finishLoad(gen, err)
		return
	}

	s.mu.Lock()
	if s.generation.Load() == gen {
		s.persisted = version
		s.hasSaved = true
		s.state = StateReady
	}
	s.mu.Unlock()
	s.syncer.Remember(ctx, store.Snapshot())
}

func (s *Session) finishLoad(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		s.syncer.metrics.ObserveStaleLoad()
		return
	}
	s.state = StateReady
	s.lastLoadErr = err
}

// Save persists the current snapshot and waits for the outcome. While the
// remote load is still running the save waits for it, so the remote record is
// never overwritten before it has been read.
func (s *Session) Save(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SaveTimeout)
	defer cancel()
	return s.save(ctx, s.generation.Load())
}

// ScheduleSave persists the current snapshot in the background. Failures are
// logged and counted.
func (s *Session) ScheduleSave() {
	gen := s.generation.Load()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.LoadTimeout+s.opts.SaveTimeout)
		defer cancel()
		if err := s.save(ctx, gen); err != nil {
			s.logger.Error("autosave failed", "business_id", s.BusinessID(), "error", err)
		}
	}()
}

// awaitLoad blocks until the load of generation gen has settled.
func (s *Session) awaitLoad(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if s.store == nil {
		s.mu.Unlock()
		return ErrNoTenant
	}
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return ErrSessionSwitched
	}
	done := s.loadDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("pagesync: save waiting for load: %w", ctx.Err())
	}
}

func (s *Session) save(ctx context.Context, gen uint64) error {
	if err := s.awaitLoad(ctx, gen); err != nil {
		return err
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.generation.Load() != gen {
		s.mu.Unlock()
		return ErrSessionSwitched
	}
	if s.lastLoadErr != nil {
		err := s.lastLoadErr
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	store := s.store
	persisted, hasSaved := s.persisted, s.hasSaved
	s.saving++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.saving--
		s.mu.Unlock()
	}()

	snap := store.Snapshot()
	if hasSaved && snap.Version <= persisted {
		s.syncer.metrics.ObserveSave("superseded", 0)
		return nil
	}
	if err := s.syncer.Persist(ctx, snap); err != nil {
		return err
	}

	s.mu.Lock()
	if s.generation.Load() == gen {
		s.persisted = snap.Version
		s.hasSaved = true
	}
	s.mu.Unlock()
	return nil
}

// Subscribe registers fn for changes of whichever tenant is active, including
// the reset that happens on a tenant switch.
func (s *Session) Subscribe(fn func(bookingpage.Change)) (cancel func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			delete(s.listeners, id)
			s.lmu.Unlock()
		})
	}
}

func (s *Session) forward(gen uint64, c bookingpage.Change) {
	if s.generation.Load() != gen {
		return
	}
	s.notify(c)
	if c.Source == bookingpage.SourceEdit && s.opts.Autosave {
		s.ScheduleSave()
	}
}

func (s *Session) notify(c bookingpage.Change) {
	s.lmu.Lock()
	fns := make([]func(bookingpage.Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Store returns the active tenant's store, or nil before Open.
func (s *Session) Store() *bookingpage.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// BusinessID returns the active tenant.
func (s *Session) BusinessID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.businessID
}

// State returns the current load state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Saving reports whether a save is in flight.
func (s *Session) Saving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving > 0
}

// LastLoadError returns the error of the most recent remote load, if any.
func (s *Session) LastLoadError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastLoadErr
}

// WaitLoaded blocks until the active tenant's remote load settles.
func (s *Session) WaitLoaded(ctx context.Context) error {
	s.mu.Lock()
	done := s.loadDone
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drops store subscriptions and invalidates any in-flight load.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation.Add(1)
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.lmu.Lock()
	s.listeners = make(map[int]func(bookingpage.Change))
	s.lmu.Unlock()
}
