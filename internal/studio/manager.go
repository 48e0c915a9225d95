// Package studio exposes the booking page editor over HTTP: per-console
// sessions, settings mutations, live previews and explicit saves.
package studio

import (
	"context"
	"strings"
	"sync"

	"github.com/wolfman30/booking-page-studio/internal/pagesync"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

// DefaultConsole is used when a request carries no console id.
const DefaultConsole = "default"

// sessionKey scopes a console to one business, so requests for another
// business never reuse, and never reset, a session they do not own.
type sessionKey struct {
	businessID string
	consoleID  string
}

type sessionEntry struct {
	sess *pagesync.Session
	open sync.Once
}

// Manager keeps one editing session per business and console.
type Manager struct {
	syncer *pagesync.Synchronizer
	opts   pagesync.SessionOptions
	logger *logging.Logger

	mu       sync.Mutex
	sessions map[sessionKey]*sessionEntry
}

// NewManager creates an empty session registry.
func NewManager(syncer *pagesync.Synchronizer, opts pagesync.SessionOptions, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		syncer:   syncer,
		opts:     opts,
		logger:   logger,
		sessions: make(map[sessionKey]*sessionEntry),
	}
}

func normalizeConsole(consoleID string) string {
	consoleID = strings.TrimSpace(consoleID)
	if consoleID == "" {
		return DefaultConsole
	}
	return consoleID
}

// Acquire returns the session for businessID on consoleID, opening it on first
// use. A session whose remote load failed is reopened so the load is retried.
// The load continues in the background.
func (m *Manager) Acquire(ctx context.Context, consoleID, businessID string) *pagesync.Session {
	key := sessionKey{businessID: businessID, consoleID: normalizeConsole(consoleID)}

	m.mu.Lock()
	entry, ok := m.sessions[key]
	if !ok {
		entry = &sessionEntry{
			sess: pagesync.NewSession(m.syncer, m.opts, m.logger.With("console", key.consoleID, "business_id", businessID)),
		}
		m.sessions[key] = entry
	}
	m.mu.Unlock()

	opened := false
	entry.open.Do(func() {
		entry.sess.Open(ctx, businessID)
		opened = true
	})
	if !opened && entry.sess.State() == pagesync.StateReady && entry.sess.LastLoadError() != nil {
		m.logger.Info("retrying booking page load", "console", key.consoleID, "business_id", businessID)
		entry.sess.Open(ctx, businessID)
	}
	return entry.sess
}

// Lookup returns an existing session without opening anything.
func (m *Manager) Lookup(consoleID, businessID string) (*pagesync.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.sessions[sessionKey{businessID: businessID, consoleID: normalizeConsole(consoleID)}]
	if !ok {
		return nil, false
	}
	return entry.sess, true
}

// Len reports how many sessions are open.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close shuts every session down.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for key, entry := range m.sessions {
		entries = append(entries, entry)
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	for _, entry := range entries {
		entry.sess.Close()
	}
}
