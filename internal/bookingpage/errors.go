package bookingpage

import "errors"

var (
	// ErrInvalidSteps is returned when a step list is not a permutation of the canonical steps.
	ErrInvalidSteps = errors.New("bookingpage: invalid step list")

	// ErrUnknownStep is returned when a step id is not part of the canonical set.
	ErrUnknownStep = errors.New("bookingpage: unknown step")

	// ErrStepIndex is returned when a move refers to a position outside the list.
	ErrStepIndex = errors.New("bookingpage: step index out of range")

	// ErrInvalidLayout is returned for layout modes other than stepped/allinone.
	ErrInvalidLayout = errors.New("bookingpage: invalid layout type")

	// ErrInvalidButtonStyle is returned for button styles other than squared/rounded/pill.
	ErrInvalidButtonStyle = errors.New("bookingpage: invalid button style")

	// ErrMissingCustomText is returned when a custom texts object lacks one of the fixed keys.
	ErrMissingCustomText = errors.New("bookingpage: missing custom text")

	// ErrMissingBusinessID is returned when settings are not owned by a tenant.
	ErrMissingBusinessID = errors.New("bookingpage: business id required")

	// ErrTenantMismatch is returned when a snapshot for one tenant is written into another tenant's store.
	ErrTenantMismatch = errors.New("bookingpage: snapshot belongs to another business")
)
