package pagesync

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the remote store has no record for a tenant.
var ErrNotFound = errors.New("pagesync: no settings record for business")

// RemoteStore is the authoritative per-tenant settings table.
type RemoteStore interface {
	Load(ctx context.Context, businessID string) (Record, error)
	Exists(ctx context.Context, businessID string) (bool, error)
	Update(ctx context.Context, rec Record) error
	Insert(ctx context.Context, rec Record) error
}

// SaveRecord writes rec with a read-check upsert: update when a row exists for the
// tenant, insert otherwise.
func SaveRecord(ctx context.Context, remote RemoteStore, rec Record) error {
	exists, err := remote.Exists(ctx, rec.BusinessID)
	if err != nil {
		return err
	}
	if exists {
		return remote.Update(ctx, rec)
	}
	return remote.Insert(ctx, rec)
}

// pgDB is the subset of pgxpool.Pool used by PostgresStore.
type pgDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists settings in the booking_page_settings table.
type PostgresStore struct {
	db pgDB
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("pagesync: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

// NewPostgresStoreWithDB allows injecting a mock database for testing.
func NewPostgresStoreWithDB(db pgDB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, businessID string) (Record, error) {
	query := `
		SELECT business_id, template_id, primary_color, secondary_color, button_style,
		       business_name, welcome_message, logo_ref, custom_url, booking_button_text,
		       show_confirmation, confirmation_message, layout_type, steps, custom_texts,
		       version, updated_at
		FROM booking_page_settings
		WHERE business_id = $1
	`
	var rec Record
	err := s.db.QueryRow(ctx, query, businessID).Scan(
		&rec.BusinessID,
		&rec.TemplateID,
		&rec.PrimaryColor,
		&rec.SecondaryColor,
		&rec.ButtonStyle,
		&rec.BusinessName,
		&rec.WelcomeMessage,
		&rec.LogoRef,
		&rec.CustomURL,
		&rec.BookingButtonText,
		&rec.ShowConfirmation,
		&rec.ConfirmationMessage,
		&rec.LayoutType,
		&rec.Steps,
		&rec.CustomTexts,
		&rec.Version,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("pagesync: load settings: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Exists(ctx context.Context, businessID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM booking_page_settings WHERE business_id = $1)`
	if err := s.db.QueryRow(ctx, query, businessID).Scan(&exists); err != nil {
		return false, fmt.Errorf("pagesync: check settings row: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Update(ctx context.Context, rec Record) error {
	query := `
		UPDATE booking_page_settings
		SET template_id = $2, primary_color = $3, secondary_color = $4, button_style = $5,
		    business_name = $6, welcome_message = $7, logo_ref = $8, custom_url = $9,
		    booking_button_text = $10, show_confirmation = $11, confirmation_message = $12,
		    layout_type = $13, steps = $14, custom_texts = $15, version = $16, updated_at = now()
		WHERE business_id = $1
	`
	ct, err := s.db.Exec(ctx, query, recordArgs(rec)...)
	if err != nil {
		return fmt.Errorf("pagesync: update settings: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("pagesync: update settings: %w", ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	query := `
		INSERT INTO booking_page_settings (
			business_id, template_id, primary_color, secondary_color, button_style,
			business_name, welcome_message, logo_ref, custom_url, booking_button_text,
			show_confirmation, confirmation_message, layout_type, steps, custom_texts, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	if _, err := s.db.Exec(ctx, query, recordArgs(rec)...); err != nil {
		return fmt.Errorf("pagesync: insert settings: %w", err)
	}
	return nil
}

func recordArgs(rec Record) []any {
	return []any{
		rec.BusinessID,
		rec.TemplateID,
		rec.PrimaryColor,
		rec.SecondaryColor,
		rec.ButtonStyle,
		rec.BusinessName,
		rec.WelcomeMessage,
		rec.LogoRef,
		rec.CustomURL,
		rec.BookingButtonText,
		rec.ShowConfirmation,
		rec.ConfirmationMessage,
		rec.LayoutType,
		rec.Steps,
		rec.CustomTexts,
		rec.Version,
	}
}
