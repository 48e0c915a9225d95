package preview

import (
	"strconv"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
)

// Variant selects the outer chrome of a render.
type Variant string

const (
	VariantInline     Variant = "inline"
	VariantFullScreen Variant = "fullscreen"
)

// ParseVariant maps a query value to a variant, defaulting to inline.
func ParseVariant(v string) Variant {
	if Variant(v) == VariantFullScreen {
		return VariantFullScreen
	}
	return VariantInline
}

// InlineMaxHeight bounds the inline preview card.
const InlineMaxHeight = "640px"

type stepRenderer func(step bookingpage.Step, s bookingpage.Settings) *Node

// Renderer turns settings snapshots into element trees. It holds no per-render
// state and is safe for concurrent use.
type Renderer struct {
	steps map[bookingpage.StepID]stepRenderer
}

// NewRenderer builds a renderer with the step dispatch table.
func NewRenderer() *Renderer {
	return &Renderer{
		steps: map[bookingpage.StepID]stepRenderer{
			bookingpage.StepService: renderServicePicker,
			bookingpage.StepDate:    renderDateTimePicker("date", bookingpage.TextDateLabel),
			bookingpage.StepTime:    renderDateTimePicker("time", bookingpage.TextTimeLabel),
			bookingpage.StepClient:  renderClientForm,
			bookingpage.StepPayment: renderPaymentPlaceholder,
		},
	}
}

// Render produces the tree for a variant. Both variants share one content subtree.
func (r *Renderer) Render(s bookingpage.Settings, v Variant) *Node {
	content := r.content(s)
	if v == VariantFullScreen {
		return newNode(KindDialog, "preview", "").prop("fullscreen", "true").add(content)
	}
	return newNode(KindCard, "preview", "").prop("max_height", InlineMaxHeight).add(content)
}

// Inline renders the bounded in-editor preview.
func (r *Renderer) Inline(s bookingpage.Settings) *Node {
	return r.Render(s, VariantInline)
}

// FullScreen renders the full-screen preview.
func (r *Renderer) FullScreen(s bookingpage.Settings) *Node {
	return r.Render(s, VariantFullScreen)
}

func (r *Renderer) content(s bookingpage.Settings) *Node {
	page := newNode(KindPage, s.BusinessID, "")
	applyStyle(page, bookingpage.StyleFor(s.TemplateID))
	page.prop("layout", string(s.LayoutType))
	page.prop("template", string(s.TemplateID))

	page.add(renderHeader(s))
	page.add(newNode(KindSection, "intro", s.CustomTexts.SectionTitle).
		add(newNode(KindText, "description", s.CustomTexts.SectionDescription)))

	enabled := bookingpage.EnabledSteps(s.Steps)
	if s.LayoutType == bookingpage.LayoutAllInOne {
		for _, step := range enabled {
			page.add(r.renderStep(step, s))
		}
	} else {
		active := bookingpage.FirstEnabled(s.Steps)
		page.add(renderProgress(enabled, active))
		if active != nil {
			page.add(r.renderStep(*active, s))
		}
	}

	page.add(newNode(KindButton, "book", s.BookingButtonText).
		prop("style", string(s.ButtonStyle)).
		prop("color", s.PrimaryColor))
	if s.ShowConfirmation {
		page.add(newNode(KindConfirmation, "confirmation", s.ConfirmationMessage).
			prop("color", s.SecondaryColor))
	}
	return page
}

// renderStep returns nil for ids missing from the dispatch table.
func (r *Renderer) renderStep(step bookingpage.Step, s bookingpage.Settings) *Node {
	render, ok := r.steps[step.ID]
	if !ok {
		return nil
	}
	node := newNode(KindStep, string(step.ID), step.Label())
	if step.Icon != "" {
		node.prop("icon", step.Icon)
	}
	if step.Description != "" {
		node.prop("description", step.Description)
	}
	return node.add(render(step, s))
}

func applyStyle(n *Node, style bookingpage.TemplateStyle) {
	switch style {
	case bookingpage.StyleMinimal:
		n.prop("shadow", "none").prop("spacing", "compact").prop("corners", "square")
	case bookingpage.StylePremium:
		n.prop("shadow", "large").prop("spacing", "relaxed").prop("corners", "rounded")
	default:
		n.prop("shadow", "small").prop("spacing", "normal").prop("corners", "rounded")
	}
}

func renderHeader(s bookingpage.Settings) *Node {
	header := newNode(KindHeader, "header", "")
	if s.LogoRef != "" {
		header.add(newNode(KindLogo, "logo", "").prop("src", s.LogoRef))
	}
	return header.add(
		newNode(KindTitle, "business_name", s.BusinessName),
		newNode(KindText, "welcome", s.WelcomeMessage),
	)
}

func renderProgress(enabled []bookingpage.Step, active *bookingpage.Step) *Node {
	progress := newNode(KindProgress, "progress", "")
	for i, step := range enabled {
		item := newNode(KindProgressItem, string(step.ID), step.Label()).
			prop("index", strconv.Itoa(i+1)).
			prop("active", strconv.FormatBool(active != nil && active.ID == step.ID))
		progress.add(item)
	}
	return progress
}

func renderServicePicker(_ bookingpage.Step, s bookingpage.Settings) *Node {
	return newNode(KindServicePicker, "widget", s.CustomTexts.ServiceLabel).
		prop("accent", s.PrimaryColor)
}

func renderDateTimePicker(mode string, label bookingpage.CustomTextKey) stepRenderer {
	return func(_ bookingpage.Step, s bookingpage.Settings) *Node {
		text, _ := s.CustomTexts.Get(label)
		return newNode(KindDateTimePicker, "widget", text).
			prop("mode", mode).
			prop("accent", s.PrimaryColor)
	}
}

func renderClientForm(_ bookingpage.Step, s bookingpage.Settings) *Node {
	return newNode(KindClientForm, "widget", s.CustomTexts.ClientInfoLabel).
		prop("fields", "name,email,phone")
}

func renderPaymentPlaceholder(_ bookingpage.Step, s bookingpage.Settings) *Node {
	return newNode(KindPaymentPlaceholder, "widget", s.CustomTexts.PaymentLabel)
}
