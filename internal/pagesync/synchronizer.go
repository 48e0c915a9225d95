package pagesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	"github.com/wolfman30/booking-page-studio/internal/observability/metrics"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

var syncTracer = otel.Tracer("bookingpage.internal.pagesync")

// AuditRecorder receives persistence events worth keeping a trail of.
type AuditRecorder interface {
	RecordSave(ctx context.Context, businessID string, version int64, changedFields []string) error
	RecordFallback(ctx context.Context, businessID string, fields []string) error
}

// Synchronizer moves settings between the local cache and the remote store.
type Synchronizer struct {
	cache   LocalCache
	remote  RemoteStore
	audit   AuditRecorder
	metrics *metrics.SyncMetrics
	logger  *logging.Logger

	mu        sync.Mutex
	persisted map[string]bookingpage.Settings
}

// NewSynchronizer wires a cache and a remote store.
func NewSynchronizer(cache LocalCache, remote RemoteStore, logger *logging.Logger) *Synchronizer {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if remote == nil {
		panic("pagesync: remote store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Synchronizer{
		cache:     cache,
		remote:    remote,
		logger:    logger,
		persisted: make(map[string]bookingpage.Settings),
	}
}

// WithAudit attaches an audit recorder.
func (s *Synchronizer) WithAudit(audit AuditRecorder) *Synchronizer {
	s.audit = audit
	return s
}

// WithMetrics attaches sync metrics.
func (s *Synchronizer) WithMetrics(m *metrics.SyncMetrics) *Synchronizer {
	s.metrics = m
	return s
}

// Hydrate reads the tenant's last known snapshot from the local cache.
func (s *Synchronizer) Hydrate(ctx context.Context, businessID string) (bookingpage.Settings, bool) {
	rec, ok, err := s.cache.Get(ctx, businessID)
	if err != nil {
		s.logger.Warn("local cache read failed", "business_id", businessID, "error", err)
		s.metrics.ObserveHydration("error")
		return bookingpage.Settings{}, false
	}
	if !ok {
		s.metrics.ObserveHydration("miss")
		return bookingpage.Settings{}, false
	}
	if rec.BusinessID != businessID {
		s.logger.Warn("local cache entry belongs to another business", "business_id", businessID, "cached_business_id", rec.BusinessID)
		s.metrics.ObserveHydration("error")
		return bookingpage.Settings{}, false
	}
	settings, fallbacks := DecodeRecord(rec)
	if len(fallbacks) > 0 {
		s.logger.Warn("local cache entry partially corrupt", "business_id", businessID, "fields", fallbacks)
	}
	s.metrics.ObserveHydration("hit")
	return settings, true
}

// Fetch loads the authoritative record. ErrNotFound is returned unwrapped.
func (s *Synchronizer) Fetch(ctx context.Context, businessID string) (bookingpage.Settings, error) {
	ctx, span := syncTracer.Start(ctx, "pagesync.fetch")
	defer span.End()
	span.SetAttributes(attribute.String("bookingpage.business_id", businessID))

	rec, err := s.remote.Load(ctx, businessID)
	if errors.Is(err, ErrNotFound) {
		span.SetAttributes(attribute.Bool("bookingpage.found", false))
		s.metrics.ObserveLoad("not_found")
		return bookingpage.Settings{}, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote load failed")
		s.metrics.ObserveLoad("error")
		return bookingpage.Settings{}, fmt.Errorf("pagesync: fetch %s: %w", businessID, err)
	}
	span.SetAttributes(attribute.Bool("bookingpage.found", true))

	settings, fallbacks := DecodeRecord(rec)
	if len(fallbacks) > 0 {
		span.SetAttributes(attribute.StringSlice("bookingpage.fallbacks", fallbacks))
		s.logger.Warn("remote settings fell back to defaults", "business_id", businessID, "fields", fallbacks)
		for _, field := range fallbacks {
			s.metrics.ObserveFallback(field)
		}
		if s.audit != nil {
			if err := s.audit.RecordFallback(ctx, businessID, fallbacks); err != nil {
				s.logger.Warn("audit fallback event failed", "business_id", businessID, "error", err)
			}
		}
	}
	s.metrics.ObserveLoad("remote")
	s.setPersisted(settings)
	return settings, nil
}

// Remember overwrites the local cache entry without touching the remote store.
func (s *Synchronizer) Remember(ctx context.Context, settings bookingpage.Settings) {
	rec, err := EncodeRecord(settings)
	if err != nil {
		s.logger.Warn("encode settings for cache failed", "business_id", settings.BusinessID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.Warn("local cache write failed", "business_id", settings.BusinessID, "error", err)
	}
}

// Persist writes the snapshot to the local cache and then upserts it remotely.
// The local write is not rolled back when the remote write fails.
func (s *Synchronizer) Persist(ctx context.Context, settings bookingpage.Settings) error {
	ctx, span := syncTracer.Start(ctx, "pagesync.persist")
	defer span.End()
	span.SetAttributes(
		attribute.String("bookingpage.business_id", settings.BusinessID),
		attribute.Int64("bookingpage.version", settings.Version),
	)
	start := time.Now()

	rec, err := EncodeRecord(settings)
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveSave("error", time.Since(start).Seconds())
		return err
	}
	if err := s.cache.Set(ctx, rec); err != nil {
		s.logger.Warn("local cache write failed", "business_id", settings.BusinessID, "error", err)
	}
	if err := SaveRecord(ctx, s.remote, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remote save failed")
		s.metrics.ObserveSave("error", time.Since(start).Seconds())
		return fmt.Errorf("pagesync: persist %s: %w", settings.BusinessID, err)
	}
	s.metrics.ObserveSave("ok", time.Since(start).Seconds())

	changed := s.setPersisted(settings)
	if s.audit != nil {
		if err := s.audit.RecordSave(ctx, settings.BusinessID, settings.Version, changed); err != nil {
			s.logger.Warn("audit save event failed", "business_id", settings.BusinessID, "error", err)
		}
	}
	s.logger.Info("booking page settings saved", "business_id", settings.BusinessID, "version", settings.Version, "changed", changed)
	return nil
}

// setPersisted records the latest remote baseline and returns the fields that
// differ from the previous one.
func (s *Synchronizer) setPersisted(settings bookingpage.Settings) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.persisted[settings.BusinessID]
	if !ok {
		prev = bookingpage.DefaultSettings(settings.BusinessID)
	}
	s.persisted[settings.BusinessID] = settings.Clone()
	return bookingpage.ChangedFields(prev, settings)
}
