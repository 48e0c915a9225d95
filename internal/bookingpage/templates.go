package bookingpage

// TemplateID names one of the catalog templates.
type TemplateID string

const (
	TemplateStandard TemplateID = "standard"
	TemplateMinimal  TemplateID = "minimal"
	TemplatePremium  TemplateID = "premium"
)

// TemplateStyle drives container styling in the preview. It never affects step order or visibility.
type TemplateStyle string

const (
	StyleStandard TemplateStyle = "standard"
	StyleMinimal  TemplateStyle = "minimal"
	StylePremium  TemplateStyle = "premium"
)

// Colors is the palette carried by a template.
type Colors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Template is a read-only catalog entry.
type Template struct {
	ID     TemplateID    `json:"id"`
	Name   string        `json:"name"`
	Colors Colors        `json:"colors"`
	Style  TemplateStyle `json:"style"`
}

var catalog = [...]Template{
	{
		ID:   TemplateStandard,
		Name: "Standard",
		Colors: Colors{
			Primary:    "#3B82F6",
			Secondary:  "#10B981",
			Background: "#FFFFFF",
			Text:       "#1F2937",
		},
		Style: StyleStandard,
	},
	{
		ID:   TemplateMinimal,
		Name: "Minimal",
		Colors: Colors{
			Primary:    "#111827",
			Secondary:  "#6B7280",
			Background: "#F9FAFB",
			Text:       "#111827",
		},
		Style: StyleMinimal,
	},
	{
		ID:   TemplatePremium,
		Name: "Premium",
		Colors: Colors{
			Primary:    "#7C3AED",
			Secondary:  "#F59E0B",
			Background: "#1E1B4B",
			Text:       "#F9FAFB",
		},
		Style: StylePremium,
	},
}

// Templates returns a copy of the catalog in display order.
func Templates() []Template {
	out := make([]Template, len(catalog))
	copy(out, catalog[:])
	return out
}

// LookupTemplate returns a copy of the catalog entry for id.
func LookupTemplate(id TemplateID) (Template, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return Template{}, false
}

// StyleFor returns the container style of a template, falling back to standard for unknown ids.
func StyleFor(id TemplateID) TemplateStyle {
	if t, ok := LookupTemplate(id); ok {
		return t.Style
	}
	return StyleStandard
}
