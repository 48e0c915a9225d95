package bookingpage

import (
	"fmt"
	"strings"
)

// StepID identifies one stage of the public booking flow. The set is closed.
type StepID string

const (
	StepService StepID = "service"
	StepDate    StepID = "date"
	StepTime    StepID = "time"
	StepClient  StepID = "client"
	StepPayment StepID = "payment"
)

// canonicalSteps is the seeded pipeline in its default order.
var canonicalSteps = []Step{
	{ID: StepService, Name: "Service", Enabled: true, Icon: "scissors", Description: "Choose the service to book"},
	{ID: StepDate, Name: "Date", Enabled: true, Icon: "calendar", Description: "Pick a day"},
	{ID: StepTime, Name: "Time", Enabled: true, Icon: "clock", Description: "Pick a time slot"},
	{ID: StepClient, Name: "Your details", Enabled: true, Icon: "user", Description: "Tell us who is booking"},
	{ID: StepPayment, Name: "Payment", Enabled: true, Icon: "credit-card", Description: "Choose how to pay"},
}

// Step is one entry of the booking pipeline.
type Step struct {
	ID          StepID `json:"id"`
	Name        string `json:"name"`
	CustomLabel string `json:"customLabel,omitempty"`
	Enabled     bool   `json:"enabled"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

// Label returns the display label, preferring the custom override.
func (s Step) Label() string {
	if strings.TrimSpace(s.CustomLabel) != "" {
		return s.CustomLabel
	}
	return s.Name
}

// StepIDs returns the canonical step ids in default order.
func StepIDs() []StepID {
	ids := make([]StepID, len(canonicalSteps))
	for i, s := range canonicalSteps {
		ids[i] = s.ID
	}
	return ids
}

// IsKnownStep reports whether id belongs to the canonical set.
func IsKnownStep(id StepID) bool {
	for _, s := range canonicalSteps {
		if s.ID == id {
			return true
		}
	}
	return false
}

// DefaultSteps returns a fresh copy of the seeded pipeline.
func DefaultSteps() []Step {
	return cloneSteps(canonicalSteps)
}

// ValidateSteps checks that steps holds exactly one entry per canonical id.
func ValidateSteps(steps []Step) error {
	if len(steps) != len(canonicalSteps) {
		return fmt.Errorf("%w: expected %d steps, got %d", ErrInvalidSteps, len(canonicalSteps), len(steps))
	}
	seen := make(map[StepID]struct{}, len(steps))
	for _, s := range steps {
		if !IsKnownStep(s.ID) {
			return fmt.Errorf("%w: unknown id %q", ErrInvalidSteps, s.ID)
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidSteps, s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// Reorder accepts the full list in a new order. Only the order may differ from current.
func Reorder(current, ordered []Step) ([]Step, error) {
	if err := ValidateSteps(ordered); err != nil {
		return nil, err
	}
	if err := ValidateSteps(current); err != nil {
		return nil, err
	}
	for _, s := range ordered {
		if current[indexOf(current, s.ID)] != s {
			return nil, fmt.Errorf("%w: step %q changed content during reorder", ErrInvalidSteps, s.ID)
		}
	}
	return cloneSteps(ordered), nil
}

// MoveStep removes the step at from and reinserts it at to, shifting the steps in between.
func MoveStep(steps []Step, from, to int) ([]Step, error) {
	if from < 0 || from >= len(steps) || to < 0 || to >= len(steps) {
		return nil, fmt.Errorf("%w: move %d -> %d over %d steps", ErrStepIndex, from, to, len(steps))
	}
	out := cloneSteps(steps)
	if from == to {
		return out, nil
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out, nil
}

// ToggleStep sets the enabled flag of exactly one step without reordering.
func ToggleStep(steps []Step, id StepID, enabled bool) ([]Step, error) {
	idx := indexOf(steps, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	out := cloneSteps(steps)
	out[idx].Enabled = enabled
	return out, nil
}

// RelabelStep sets the custom label of one step. A blank label clears the override.
func RelabelStep(steps []Step, id StepID, label string) ([]Step, error) {
	idx := indexOf(steps, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStep, id)
	}
	out := cloneSteps(steps)
	if strings.TrimSpace(label) == "" {
		out[idx].CustomLabel = ""
	} else {
		out[idx].CustomLabel = label
	}
	return out, nil
}

// FirstEnabled returns the enabled step with the lowest index, or nil if every step is disabled.
func FirstEnabled(steps []Step) *Step {
	for i := range steps {
		if steps[i].Enabled {
			s := steps[i]
			return &s
		}
	}
	return nil
}

// EnabledSteps filters steps down to the live pipeline, preserving order.
func EnabledSteps(steps []Step) []Step {
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func indexOf(steps []Step, id StepID) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func cloneSteps(steps []Step) []Step {
	if steps == nil {
		return nil
	}
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}
