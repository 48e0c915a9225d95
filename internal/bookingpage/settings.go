// Package bookingpage holds the booking page configuration model: the step pipeline,
// the template catalog, the custom label set and the per-tenant settings store.
package bookingpage

import (
	"fmt"
	"strings"
)

// LayoutType selects how the public booking page lays out its steps.
type LayoutType string

const (
	LayoutStepped  LayoutType = "stepped"
	LayoutAllInOne LayoutType = "allinone"
)

// Valid reports whether l is a known layout.
func (l LayoutType) Valid() bool {
	return l == LayoutStepped || l == LayoutAllInOne
}

// ButtonStyle is the corner treatment of the booking button.
type ButtonStyle string

const (
	ButtonSquared ButtonStyle = "squared"
	ButtonRounded ButtonStyle = "rounded"
	ButtonPill    ButtonStyle = "pill"
)

// Valid reports whether b is a known button style.
func (b ButtonStyle) Valid() bool {
	return b == ButtonSquared || b == ButtonRounded || b == ButtonPill
}

// Settings is the full booking page configuration of one business.
type Settings struct {
	BusinessID          string      `json:"businessId"`
	TemplateID          TemplateID  `json:"templateId"`
	PrimaryColor        string      `json:"primaryColor"`
	SecondaryColor      string      `json:"secondaryColor"`
	ButtonStyle         ButtonStyle `json:"buttonStyle"`
	Steps               []Step      `json:"steps"`
	BusinessName        string      `json:"businessName"`
	WelcomeMessage      string      `json:"welcomeMessage"`
	LogoRef             string      `json:"logoRef"`
	CustomURL           string      `json:"customUrl"`
	BookingButtonText   string      `json:"bookingButtonText"`
	ShowConfirmation    bool        `json:"showConfirmation"`
	ConfirmationMessage string      `json:"confirmationMessage"`
	LayoutType          LayoutType  `json:"layoutType"`
	CustomTexts         CustomTexts `json:"customTexts"`
	// Version increases on every store mutation. It is not compared by Equal.
	Version int64 `json:"version"`
}

// DefaultSettings returns the configuration a tenant starts with on first access.
func DefaultSettings(businessID string) Settings {
	std, _ := LookupTemplate(TemplateStandard)
	return Settings{
		BusinessID:          businessID,
		TemplateID:          std.ID,
		PrimaryColor:        std.Colors.Primary,
		SecondaryColor:      std.Colors.Secondary,
		ButtonStyle:         ButtonRounded,
		Steps:               DefaultSteps(),
		BusinessName:        "My Business",
		WelcomeMessage:      "Welcome! Book your next appointment online.",
		BookingButtonText:   "Book now",
		ShowConfirmation:    true,
		ConfirmationMessage: "Thanks for booking with us.",
		LayoutType:          LayoutStepped,
		CustomTexts:         DefaultCustomTexts(),
	}
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	s.Steps = cloneSteps(s.Steps)
	return s
}

// Validate checks the structural invariants of a settings value.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.BusinessID) == "" {
		return ErrMissingBusinessID
	}
	if !s.LayoutType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLayout, s.LayoutType)
	}
	if !s.ButtonStyle.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidButtonStyle, s.ButtonStyle)
	}
	return ValidateSteps(s.Steps)
}

// Equal compares two settings ignoring Version.
func (s Settings) Equal(other Settings) bool {
	return len(ChangedFields(s, other)) == 0
}

// ChangedFields lists the JSON names of fields that differ between a and b, ignoring Version.
func ChangedFields(a, b Settings) []string {
	var changed []string
	add := func(name string, differs bool) {
		if differs {
			changed = append(changed, name)
		}
	}
	add("businessId", a.BusinessID != b.BusinessID)
	add("templateId", a.TemplateID != b.TemplateID)
	add("primaryColor", a.PrimaryColor != b.PrimaryColor)
	add("secondaryColor", a.SecondaryColor != b.SecondaryColor)
	add("buttonStyle", a.ButtonStyle != b.ButtonStyle)
	add("steps", !stepsEqual(a.Steps, b.Steps))
	add("businessName", a.BusinessName != b.BusinessName)
	add("welcomeMessage", a.WelcomeMessage != b.WelcomeMessage)
	add("logoRef", a.LogoRef != b.LogoRef)
	add("customUrl", a.CustomURL != b.CustomURL)
	add("bookingButtonText", a.BookingButtonText != b.BookingButtonText)
	add("showConfirmation", a.ShowConfirmation != b.ShowConfirmation)
	add("confirmationMessage", a.ConfirmationMessage != b.ConfirmationMessage)
	add("layoutType", a.LayoutType != b.LayoutType)
	add("customTexts", a.CustomTexts != b.CustomTexts)
	return changed
}

func stepsEqual(a, b []Step) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
