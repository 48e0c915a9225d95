package bookingpage

import (
	"encoding/json"
	"fmt"
)

// CustomTextKey names one of the fixed label slots on the booking page.
type CustomTextKey string

const (
	TextServiceLabel        CustomTextKey = "serviceLabel"
	TextDateLabel           CustomTextKey = "dateLabel"
	TextTimeLabel           CustomTextKey = "timeLabel"
	TextClientInfoLabel     CustomTextKey = "clientInfoLabel"
	TextPaymentLabel        CustomTextKey = "paymentLabel"
	TextConfirmationMessage CustomTextKey = "confirmationMessage"
	TextSectionTitle        CustomTextKey = "sectionTitle"
	TextSectionDescription  CustomTextKey = "sectionDescription"
)

var customTextKeys = []CustomTextKey{
	TextServiceLabel,
	TextDateLabel,
	TextTimeLabel,
	TextClientInfoLabel,
	TextPaymentLabel,
	TextConfirmationMessage,
	TextSectionTitle,
	TextSectionDescription,
}

// CustomTexts holds every user-editable label. All keys are always present.
type CustomTexts struct {
	ServiceLabel        string `json:"serviceLabel"`
	DateLabel           string `json:"dateLabel"`
	TimeLabel           string `json:"timeLabel"`
	ClientInfoLabel     string `json:"clientInfoLabel"`
	PaymentLabel        string `json:"paymentLabel"`
	ConfirmationMessage string `json:"confirmationMessage"`
	SectionTitle        string `json:"sectionTitle"`
	SectionDescription  string `json:"sectionDescription"`
}

// CustomTextKeys lists the fixed keys in display order.
func CustomTextKeys() []CustomTextKey {
	out := make([]CustomTextKey, len(customTextKeys))
	copy(out, customTextKeys)
	return out
}

// DefaultCustomTexts returns the compiled-in labels.
func DefaultCustomTexts() CustomTexts {
	return CustomTexts{
		ServiceLabel:        "Select a service",
		DateLabel:           "Select a date",
		TimeLabel:           "Select a time",
		ClientInfoLabel:     "Your information",
		PaymentLabel:        "Payment method",
		ConfirmationMessage: "Your appointment is confirmed. See you soon!",
		SectionTitle:        "Book an appointment",
		SectionDescription:  "Pick a service and a time that works for you.",
	}
}

// ParseCustomTexts decodes a JSON object and requires every fixed key to be present.
func ParseCustomTexts(data []byte) (CustomTexts, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return CustomTexts{}, fmt.Errorf("bookingpage: decode custom texts: %w", err)
	}
	if raw == nil {
		return CustomTexts{}, fmt.Errorf("%w: null object", ErrMissingCustomText)
	}
	for _, key := range customTextKeys {
		if _, ok := raw[string(key)]; !ok {
			return CustomTexts{}, fmt.Errorf("%w: %q", ErrMissingCustomText, key)
		}
	}
	var texts CustomTexts
	if err := json.Unmarshal(data, &texts); err != nil {
		return CustomTexts{}, fmt.Errorf("bookingpage: decode custom texts: %w", err)
	}
	return texts, nil
}

// Get returns the value stored under key.
func (c CustomTexts) Get(key CustomTextKey) (string, bool) {
	p := c.field(key)
	if p == nil {
		return "", false
	}
	return *p, true
}

// With returns a copy with key set to value.
func (c CustomTexts) With(key CustomTextKey, value string) (CustomTexts, error) {
	p := c.field(key)
	if p == nil {
		return c, fmt.Errorf("%w: unknown key %q", ErrMissingCustomText, key)
	}
	*p = value
	return c, nil
}

// field points into the receiver copy.
func (c *CustomTexts) field(key CustomTextKey) *string {
	switch key {
	case TextServiceLabel:
		return &c.ServiceLabel
	case TextDateLabel:
		return &c.DateLabel
	case TextTimeLabel:
		return &c.TimeLabel
	case TextClientInfoLabel:
		return &c.ClientInfoLabel
	case TextPaymentLabel:
		return &c.PaymentLabel
	case TextConfirmationMessage:
		return &c.ConfirmationMessage
	case TextSectionTitle:
		return &c.SectionTitle
	case TextSectionDescription:
		return &c.SectionDescription
	default:
		return nil
	}
}
