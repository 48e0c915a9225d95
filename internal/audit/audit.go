// Package audit keeps an append-only trail of booking page persistence events.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// EventType represents the kind of audit event.
type EventType string

const (
	// EventSettingsSaved is logged after a successful remote save.
	EventSettingsSaved EventType = "booking_page.settings_saved"
	// EventFieldFallback is logged when stored fields could not be decoded and defaults were used.
	EventFieldFallback EventType = "booking_page.field_fallback"
)

// Event is an immutable audit record.
type Event struct {
	ID              string          `json:"id"`
	EventType       EventType       `json:"event_type"`
	BusinessID      string          `json:"business_id"`
	SettingsVersion int64           `json:"settings_version"`
	ChangedFields   []string        `json:"changed_fields"`
	Details         json.RawMessage `json:"details,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Service writes and queries audit events.
type Service struct {
	db *sql.DB
}

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// LogEvent records an audit event.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.ChangedFields == nil {
		event.ChangedFields = []string{}
	}

	query := `
		INSERT INTO booking_page_audit_events (
			id, event_type, business_id, settings_version, changed_fields, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.BusinessID,
		event.SettingsVersion,
		pq.Array(event.ChangedFields),
		nullJSON(event.Details),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// RecordSave logs a successful save with the fields that changed since the previous one.
func (s *Service) RecordSave(ctx context.Context, businessID string, version int64, changedFields []string) error {
	return s.LogEvent(ctx, Event{
		EventType:       EventSettingsSaved,
		BusinessID:      businessID,
		SettingsVersion: version,
		ChangedFields:   changedFields,
	})
}

// RecordFallback logs fields that were replaced by defaults while loading.
func (s *Service) RecordFallback(ctx context.Context, businessID string, fields []string) error {
	details, _ := json.Marshal(map[string]string{"reason": "undecodable stored value"})
	return s.LogEvent(ctx, Event{
		EventType:     EventFieldFallback,
		BusinessID:    businessID,
		ChangedFields: fields,
		Details:       details,
	})
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	BusinessID string
	EventType  EventType
	Since      time.Time
	Limit      int
}

// QueryEvents returns a tenant's events, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, business_id, settings_version, changed_fields, details, created_at
		FROM booking_page_audit_events
		WHERE business_id = $1
	`
	args := []any{filter.BusinessID}
	argIdx := 2

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var details []byte
		if err := rows.Scan(
			&e.ID, &e.EventType, &e.BusinessID, &e.SettingsVersion,
			pq.Array(&e.ChangedFields), &details, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		if len(details) > 0 {
			e.Details = json.RawMessage(details)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return events, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
