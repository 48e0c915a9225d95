package bookingpage

import (
	"fmt"
	"strings"
	"sync"
)

// ChangeSource tells listeners why the store changed.
type ChangeSource string

const (
	// SourceEdit marks a mutation issued through a setter.
	SourceEdit ChangeSource = "edit"
	// SourceReload marks a wholesale replacement with a freshly loaded snapshot.
	SourceReload ChangeSource = "reload"
)

// Change is delivered to listeners after every committed mutation.
type Change struct {
	Settings Settings
	Source   ChangeSource
}

// Store owns the live settings value of one tenant. Mutations are applied in call
// order under a write lock and every reader gets a deep copy, so no reader ever sees
// a half-applied update.
type Store struct {
	mu        sync.RWMutex
	settings  Settings
	listeners map[int]func(Change)
	nextID    int
}

// NewStore creates a store seeded with the defaults for businessID.
func NewStore(businessID string) *Store {
	return &Store{
		settings:  DefaultSettings(businessID),
		listeners: make(map[int]func(Change)),
	}
}

// NewStoreFrom creates a store seeded with a validated snapshot.
func NewStoreFrom(settings Settings) (*Store, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		settings:  settings.Clone(),
		listeners: make(map[int]func(Change)),
	}, nil
}

// Subscribe registers fn for every committed change. The returned func removes it.
func (s *Store) Subscribe(fn func(Change)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns a deep copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// BusinessID returns the owning tenant.
func (s *Store) BusinessID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.BusinessID
}

// Version returns the mutation counter.
func (s *Store) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Version
}

// Replace swaps in a freshly loaded snapshot for the same tenant and returns the
// version it committed under.
func (s *Store) Replace(next Settings) (int64, error) {
	if err := next.Validate(); err != nil {
		return 0, err
	}
	return s.commit(SourceReload, func(cur *Settings) error {
		if next.BusinessID != cur.BusinessID {
			return fmt.Errorf("%w: store=%s snapshot=%s", ErrTenantMismatch, cur.BusinessID, next.BusinessID)
		}
		*cur = next.Clone()
		return nil
	})
}

// commit applies fn to a working copy and publishes it only when fn succeeds.
func (s *Store) commit(source ChangeSource, fn func(*Settings) error) (int64, error) {
	s.mu.Lock()
	prevVersion := s.settings.Version
	working := s.settings.Clone()
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return prevVersion, err
	}
	working.Version = prevVersion + 1
	s.settings = working
	change := Change{Settings: working.Clone(), Source: source}
	listeners := make([]func(Change), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
	return working.Version, nil
}

func (s *Store) edit(fn func(*Settings) error) error {
	_, err := s.commit(SourceEdit, fn)
	return err
}

func (s *Store) read(fn func(*Settings)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.settings)
}

// ApplyTemplate copies the palette of a catalog template into the store. Both colors and
// the template id change under one lock. An unknown id leaves the store untouched and
// returns the current colors with ok=false.
func (s *Store) ApplyTemplate(id TemplateID) (Colors, bool) {
	tpl, found := LookupTemplate(id)
	if !found {
		var cur Colors
		s.read(func(st *Settings) {
			cur = Colors{Primary: st.PrimaryColor, Secondary: st.SecondaryColor}
		})
		return cur, false
	}
	_ = s.edit(func(st *Settings) error {
		st.TemplateID = tpl.ID
		st.PrimaryColor = tpl.Colors.Primary
		st.SecondaryColor = tpl.Colors.Secondary
		return nil
	})
	return Colors{Primary: tpl.Colors.Primary, Secondary: tpl.Colors.Secondary}, true
}

// TemplateID returns the selected template.
func (s *Store) TemplateID() (id TemplateID) {
	s.read(func(st *Settings) { id = st.TemplateID })
	return id
}

// SetTemplateID selects a template without touching colors. Unknown ids are ignored.
func (s *Store) SetTemplateID(id TemplateID) bool {
	if _, ok := LookupTemplate(id); !ok {
		return false
	}
	_ = s.edit(func(st *Settings) error {
		st.TemplateID = id
		return nil
	})
	return true
}

func (s *Store) PrimaryColor() (v string) {
	s.read(func(st *Settings) { v = st.PrimaryColor })
	return v
}

func (s *Store) SetPrimaryColor(v string) {
	_ = s.edit(func(st *Settings) error {
		st.PrimaryColor = v
		return nil
	})
}

func (s *Store) SecondaryColor() (v string) {
	s.read(func(st *Settings) { v = st.SecondaryColor })
	return v
}

func (s *Store) SetSecondaryColor(v string) {
	_ = s.edit(func(st *Settings) error {
		st.SecondaryColor = v
		return nil
	})
}

func (s *Store) ButtonStyle() (v ButtonStyle) {
	s.read(func(st *Settings) { v = st.ButtonStyle })
	return v
}

func (s *Store) SetButtonStyle(v ButtonStyle) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidButtonStyle, v)
	}
	return s.edit(func(st *Settings) error {
		st.ButtonStyle = v
		return nil
	})
}

// Steps returns a copy of the pipeline in its current order.
func (s *Store) Steps() (v []Step) {
	s.read(func(st *Settings) { v = cloneSteps(st.Steps) })
	return v
}

// SetSteps replaces the pipeline. An invalid list is rejected and the store is left untouched.
func (s *Store) SetSteps(steps []Step) error {
	if err := ValidateSteps(steps); err != nil {
		return err
	}
	return s.edit(func(st *Settings) error {
		st.Steps = cloneSteps(steps)
		return nil
	})
}

// ReorderSteps accepts the full pipeline in a new order.
func (s *Store) ReorderSteps(ordered []Step) error {
	return s.edit(func(st *Settings) error {
		next, err := Reorder(st.Steps, ordered)
		if err != nil {
			return err
		}
		st.Steps = next
		return nil
	})
}

// MoveStep applies a drag-and-drop move from one index to another.
func (s *Store) MoveStep(from, to int) error {
	return s.edit(func(st *Settings) error {
		next, err := MoveStep(st.Steps, from, to)
		if err != nil {
			return err
		}
		st.Steps = next
		return nil
	})
}

func (s *Store) ToggleStep(id StepID, enabled bool) error {
	return s.edit(func(st *Settings) error {
		next, err := ToggleStep(st.Steps, id, enabled)
		if err != nil {
			return err
		}
		st.Steps = next
		return nil
	})
}

func (s *Store) RelabelStep(id StepID, label string) error {
	return s.edit(func(st *Settings) error {
		next, err := RelabelStep(st.Steps, id, label)
		if err != nil {
			return err
		}
		st.Steps = next
		return nil
	})
}

func (s *Store) BusinessName() (v string) {
	s.read(func(st *Settings) { v = st.BusinessName })
	return v
}

func (s *Store) SetBusinessName(v string) {
	_ = s.edit(func(st *Settings) error {
		st.BusinessName = v
		return nil
	})
}

func (s *Store) WelcomeMessage() (v string) {
	s.read(func(st *Settings) { v = st.WelcomeMessage })
	return v
}

func (s *Store) SetWelcomeMessage(v string) {
	_ = s.edit(func(st *Settings) error {
		st.WelcomeMessage = v
		return nil
	})
}

func (s *Store) LogoRef() (v string) {
	s.read(func(st *Settings) { v = st.LogoRef })
	return v
}

func (s *Store) SetLogoRef(v string) {
	_ = s.edit(func(st *Settings) error {
		st.LogoRef = v
		return nil
	})
}

func (s *Store) CustomURL() (v string) {
	s.read(func(st *Settings) { v = st.CustomURL })
	return v
}

// SetCustomURL stores the public slug, trimmed and lowercased.
func (s *Store) SetCustomURL(v string) {
	_ = s.edit(func(st *Settings) error {
		st.CustomURL = strings.ToLower(strings.TrimSpace(v))
		return nil
	})
}

func (s *Store) BookingButtonText() (v string) {
	s.read(func(st *Settings) { v = st.BookingButtonText })
	return v
}

func (s *Store) SetBookingButtonText(v string) {
	_ = s.edit(func(st *Settings) error {
		st.BookingButtonText = v
		return nil
	})
}

func (s *Store) ShowConfirmation() (v bool) {
	s.read(func(st *Settings) { v = st.ShowConfirmation })
	return v
}

func (s *Store) SetShowConfirmation(v bool) {
	_ = s.edit(func(st *Settings) error {
		st.ShowConfirmation = v
		return nil
	})
}

func (s *Store) ConfirmationMessage() (v string) {
	s.read(func(st *Settings) { v = st.ConfirmationMessage })
	return v
}

func (s *Store) SetConfirmationMessage(v string) {
	_ = s.edit(func(st *Settings) error {
		st.ConfirmationMessage = v
		return nil
	})
}

func (s *Store) LayoutType() (v LayoutType) {
	s.read(func(st *Settings) { v = st.LayoutType })
	return v
}

func (s *Store) SetLayoutType(v LayoutType) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLayout, v)
	}
	return s.edit(func(st *Settings) error {
		st.LayoutType = v
		return nil
	})
}

func (s *Store) CustomTexts() (v CustomTexts) {
	s.read(func(st *Settings) { v = st.CustomTexts })
	return v
}

func (s *Store) SetCustomTexts(v CustomTexts) {
	_ = s.edit(func(st *Settings) error {
		st.CustomTexts = v
		return nil
	})
}

// SetCustomText updates a single label slot.
func (s *Store) SetCustomText(key CustomTextKey, value string) error {
	return s.edit(func(st *Settings) error {
		next, err := st.CustomTexts.With(key, value)
		if err != nil {
			return err
		}
		st.CustomTexts = next
		return nil
	})
}
