// Package pagesync keeps a tenant's booking page settings in step between the
// in-memory store, a local hydration cache and the authoritative remote record.
package pagesync

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
)

// Record is the persisted shape of a tenant's settings. Steps and CustomTexts are
// stored as serialized JSON text, matching the remote table columns.
type Record struct {
	BusinessID          string    `json:"business_id"`
	TemplateID          string    `json:"template_id"`
	PrimaryColor        string    `json:"primary_color"`
	SecondaryColor      string    `json:"secondary_color"`
	ButtonStyle         string    `json:"button_style"`
	BusinessName        string    `json:"business_name"`
	WelcomeMessage      string    `json:"welcome_message"`
	LogoRef             string    `json:"logo_ref"`
	CustomURL           string    `json:"custom_url"`
	BookingButtonText   string    `json:"booking_button_text"`
	ShowConfirmation    bool      `json:"show_confirmation"`
	ConfirmationMessage string    `json:"confirmation_message"`
	LayoutType          string    `json:"layout_type"`
	Steps               string    `json:"steps"`
	CustomTexts         string    `json:"custom_texts"`
	Version             int64     `json:"version"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Fallback field names reported by DecodeRecord.
const (
	FieldSteps       = "steps"
	FieldCustomTexts = "customTexts"
	FieldTemplateID  = "templateId"
	FieldButtonStyle = "buttonStyle"
	FieldLayoutType  = "layoutType"
)

// EncodeRecord serializes settings into the persisted shape.
func EncodeRecord(s bookingpage.Settings) (Record, error) {
	steps, err := json.Marshal(s.Steps)
	if err != nil {
		return Record{}, fmt.Errorf("pagesync: marshal steps: %w", err)
	}
	texts, err := json.Marshal(s.CustomTexts)
	if err != nil {
		return Record{}, fmt.Errorf("pagesync: marshal custom texts: %w", err)
	}
	return Record{
		BusinessID:          s.BusinessID,
		TemplateID:          string(s.TemplateID),
		PrimaryColor:        s.PrimaryColor,
		SecondaryColor:      s.SecondaryColor,
		ButtonStyle:         string(s.ButtonStyle),
		BusinessName:        s.BusinessName,
		WelcomeMessage:      s.WelcomeMessage,
		LogoRef:             s.LogoRef,
		CustomURL:           s.CustomURL,
		BookingButtonText:   s.BookingButtonText,
		ShowConfirmation:    s.ShowConfirmation,
		ConfirmationMessage: s.ConfirmationMessage,
		LayoutType:          string(s.LayoutType),
		Steps:               string(steps),
		CustomTexts:         string(texts),
		Version:             s.Version,
	}, nil
}

// DecodeRecord rebuilds settings from a persisted record. A field that cannot be
// decoded is replaced by its compiled-in default and reported in fallbacks; the
// rest of the record still loads.
func DecodeRecord(rec Record) (settings bookingpage.Settings, fallbacks []string) {
	defaults := bookingpage.DefaultSettings(rec.BusinessID)
	settings = defaults
	settings.PrimaryColor = rec.PrimaryColor
	settings.SecondaryColor = rec.SecondaryColor
	settings.BusinessName = rec.BusinessName
	settings.WelcomeMessage = rec.WelcomeMessage
	settings.LogoRef = rec.LogoRef
	settings.CustomURL = rec.CustomURL
	settings.BookingButtonText = rec.BookingButtonText
	settings.ShowConfirmation = rec.ShowConfirmation
	settings.ConfirmationMessage = rec.ConfirmationMessage
	settings.Version = rec.Version

	if _, ok := bookingpage.LookupTemplate(bookingpage.TemplateID(rec.TemplateID)); ok {
		settings.TemplateID = bookingpage.TemplateID(rec.TemplateID)
	} else {
		fallbacks = append(fallbacks, FieldTemplateID)
	}
	if style := bookingpage.ButtonStyle(rec.ButtonStyle); style.Valid() {
		settings.ButtonStyle = style
	} else {
		fallbacks = append(fallbacks, FieldButtonStyle)
	}
	if layout := bookingpage.LayoutType(rec.LayoutType); layout.Valid() {
		settings.LayoutType = layout
	} else {
		fallbacks = append(fallbacks, FieldLayoutType)
	}

	if steps, err := decodeSteps(rec.Steps); err == nil {
		settings.Steps = steps
	} else {
		fallbacks = append(fallbacks, FieldSteps)
	}
	if texts, err := bookingpage.ParseCustomTexts([]byte(rec.CustomTexts)); err == nil {
		settings.CustomTexts = texts
	} else {
		fallbacks = append(fallbacks, FieldCustomTexts)
	}
	return settings, fallbacks
}

func decodeSteps(raw string) ([]bookingpage.Step, error) {
	var steps []bookingpage.Step
	if err := json.Unmarshal([]byte(raw), &steps); err != nil {
		return nil, fmt.Errorf("pagesync: decode steps: %w", err)
	}
	if err := bookingpage.ValidateSteps(steps); err != nil {
		return nil, err
	}
	return steps, nil
}
