package studio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/booking-page-studio/internal/audit"
	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	"github.com/wolfman30/booking-page-studio/internal/pagesync"
	"github.com/wolfman30/booking-page-studio/internal/preview"
	"github.com/wolfman30/booking-page-studio/internal/tenancy"
	"github.com/wolfman30/booking-page-studio/pkg/logging"
)

// ConsoleHeader names the editing console a request belongs to.
const ConsoleHeader = "X-Console-Session"

// HistoryReader lists persisted audit events for a tenant.
type HistoryReader interface {
	QueryEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

// Handler serves the booking page editor API.
type Handler struct {
	manager  *Manager
	renderer *preview.Renderer
	history  HistoryReader
	logger   *logging.Logger
	loadWait time.Duration
}

// NewHandler creates the editor handler.
func NewHandler(manager *Manager, renderer *preview.Renderer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if renderer == nil {
		renderer = preview.NewRenderer()
	}
	return &Handler{
		manager:  manager,
		renderer: renderer,
		logger:   logger,
		loadWait: 5 * time.Second,
	}
}

// WithHistory enables GET /history.
func (h *Handler) WithHistory(history HistoryReader) *Handler {
	h.history = history
	return h
}

// Routes returns a chi router with the editor routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetSettings)
	r.Patch("/", h.PatchSettings)
	r.Put("/steps", h.ReorderSteps)
	r.Post("/steps/move", h.MoveStep)
	r.Patch("/steps/{stepID}", h.UpdateStep)
	r.Get("/templates", h.ListTemplates)
	r.Post("/template", h.ApplyTemplate)
	r.Put("/custom-texts", h.PutCustomTexts)
	r.Get("/preview", h.Preview)
	r.Get("/preview/stream", h.PreviewStream)
	r.Post("/save", h.Save)
	r.Get("/history", h.History)
	return r
}

// SettingsResponse is the editor's view of the active tenant.
type SettingsResponse struct {
	Settings  bookingpage.Settings `json:"settings"`
	State     pagesync.State       `json:"state"`
	Saving    bool                 `json:"saving"`
	LoadError string               `json:"loadError,omitempty"`
}

func (h *Handler) session(r *http.Request) (*pagesync.Session, bool) {
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		return nil, false
	}
	return h.manager.Acquire(r.Context(), r.Header.Get(ConsoleHeader), businessID), true
}

func (h *Handler) withSession(w http.ResponseWriter, r *http.Request) *pagesync.Session {
	sess, ok := h.session(r)
	if !ok {
		http.Error(w, `{"error": "missing business id"}`, http.StatusBadRequest)
		return nil
	}
	return sess
}

// GetSettings returns the current snapshot. ?wait=true blocks until the remote load settles.
// GET /booking-page
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	if r.URL.Query().Get("wait") == "true" {
		ctx, cancel := context.WithTimeout(r.Context(), h.loadWait)
		err := sess.WaitLoaded(ctx)
		cancel()
		if err != nil {
			h.logger.Warn("settings load still pending", "business_id", sess.BusinessID(), "error", err)
		}
	}
	h.writeSettings(w, sess)
}

// PatchSettingsRequest carries the scalar fields to change. Absent fields are left alone.
type PatchSettingsRequest struct {
	PrimaryColor        *string `json:"primaryColor,omitempty"`
	SecondaryColor      *string `json:"secondaryColor,omitempty"`
	ButtonStyle         *string `json:"buttonStyle,omitempty"`
	BusinessName        *string `json:"businessName,omitempty"`
	WelcomeMessage      *string `json:"welcomeMessage,omitempty"`
	LogoRef             *string `json:"logoRef,omitempty"`
	CustomURL           *string `json:"customUrl,omitempty"`
	BookingButtonText   *string `json:"bookingButtonText,omitempty"`
	ShowConfirmation    *bool   `json:"showConfirmation,omitempty"`
	ConfirmationMessage *string `json:"confirmationMessage,omitempty"`
	LayoutType          *string `json:"layoutType,omitempty"`
}

// PatchSettings applies a partial scalar update.
// PATCH /booking-page
func (h *Handler) PatchSettings(w http.ResponseWriter, r *http.Request) {
	var req PatchSettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ButtonStyle != nil && !bookingpage.ButtonStyle(*req.ButtonStyle).Valid() {
		http.Error(w, `{"error": "invalid button style"}`, http.StatusUnprocessableEntity)
		return
	}
	if req.LayoutType != nil && !bookingpage.LayoutType(*req.LayoutType).Valid() {
		http.Error(w, `{"error": "invalid layout type"}`, http.StatusUnprocessableEntity)
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	store := sess.Store()

	if req.PrimaryColor != nil {
		store.SetPrimaryColor(*req.PrimaryColor)
	}
	if req.SecondaryColor != nil {
		store.SetSecondaryColor(*req.SecondaryColor)
	}
	if req.ButtonStyle != nil {
		_ = store.SetButtonStyle(bookingpage.ButtonStyle(*req.ButtonStyle))
	}
	if req.BusinessName != nil {
		store.SetBusinessName(*req.BusinessName)
	}
	if req.WelcomeMessage != nil {
		store.SetWelcomeMessage(*req.WelcomeMessage)
	}
	if req.LogoRef != nil {
		store.SetLogoRef(*req.LogoRef)
	}
	if req.CustomURL != nil {
		store.SetCustomURL(*req.CustomURL)
	}
	if req.BookingButtonText != nil {
		store.SetBookingButtonText(*req.BookingButtonText)
	}
	if req.ShowConfirmation != nil {
		store.SetShowConfirmation(*req.ShowConfirmation)
	}
	if req.ConfirmationMessage != nil {
		store.SetConfirmationMessage(*req.ConfirmationMessage)
	}
	if req.LayoutType != nil {
		_ = store.SetLayoutType(bookingpage.LayoutType(*req.LayoutType))
	}
	h.writeSettings(w, sess)
}

// ReorderSteps replaces the step order.
// PUT /booking-page/steps
func (h *Handler) ReorderSteps(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Steps []bookingpage.Step `json:"steps"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Store().ReorderSteps(req.Steps); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeSettings(w, sess)
}

// MoveStep applies one drag-and-drop move.
// POST /booking-page/steps/move
func (h *Handler) MoveStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From *int `json:"from"`
		To   *int `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.From == nil || req.To == nil {
		http.Error(w, `{"error": "from and to are required"}`, http.StatusBadRequest)
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Store().MoveStep(*req.From, *req.To); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.writeSettings(w, sess)
}

// UpdateStep toggles and/or relabels one step.
// PATCH /booking-page/steps/{stepID}
func (h *Handler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	id := bookingpage.StepID(chi.URLParam(r, "stepID"))
	var req struct {
		Enabled *bool   `json:"enabled,omitempty"`
		Label   *string `json:"label,omitempty"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !bookingpage.IsKnownStep(id) {
		http.Error(w, `{"error": "unknown step"}`, http.StatusNotFound)
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	store := sess.Store()
	if req.Enabled != nil {
		if err := store.ToggleStep(id, *req.Enabled); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}
	if req.Label != nil {
		if err := store.RelabelStep(id, *req.Label); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}
	h.writeSettings(w, sess)
}

// ListTemplates returns the template catalog.
// GET /booking-page/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"templates": bookingpage.Templates()})
}

// ApplyTemplate selects a catalog template and copies its palette. Unknown ids are a no-op.
// POST /booking-page/template
func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TemplateID string `json:"templateId"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	colors, applied := sess.Store().ApplyTemplate(bookingpage.TemplateID(req.TemplateID))
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":        applied,
		"primaryColor":   colors.Primary,
		"secondaryColor": colors.Secondary,
		"settings":       sess.Store().Snapshot(),
	})
}

// PutCustomTexts replaces every custom label. All keys are required.
// PUT /booking-page/custom-texts
func (h *Handler) PutCustomTexts(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, `{"error": "invalid body"}`, http.StatusBadRequest)
		return
	}
	texts, err := bookingpage.ParseCustomTexts(body)
	if errors.Is(err, bookingpage.ErrMissingCustomText) {
		h.writeStoreError(w, err)
		return
	}
	if err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	sess.Store().SetCustomTexts(texts)
	h.writeSettings(w, sess)
}

// Preview renders the current snapshot.
// GET /booking-page/preview?variant=inline|fullscreen
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	variant := preview.ParseVariant(r.URL.Query().Get("variant"))
	writeJSON(w, http.StatusOK, h.renderer.Render(sess.Store().Snapshot(), variant))
}

// Save persists the current snapshot and reports the remote outcome.
// POST /booking-page/save
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Save(r.Context()); err != nil {
		h.logger.Error("booking page save failed", "business_id", sess.BusinessID(), "error", err)
		if errors.Is(err, pagesync.ErrLoadFailed) {
			http.Error(w, `{"error": "settings were not loaded; reload before saving"}`, http.StatusConflict)
			return
		}
		http.Error(w, `{"error": "remote save failed"}`, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"saved":   true,
		"version": sess.Store().Version(),
	})
}

// History lists recent audit events for the tenant.
// GET /booking-page/history
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		http.Error(w, `{"error": "history not configured"}`, http.StatusNotFound)
		return
	}
	businessID, ok := tenancy.BusinessIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "missing business id"}`, http.StatusBadRequest)
		return
	}
	events, err := h.history.QueryEvents(r.Context(), audit.Filter{BusinessID: businessID, Limit: 50})
	if err != nil {
		h.logger.Error("failed to query booking page history", "business_id", businessID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) writeSettings(w http.ResponseWriter, sess *pagesync.Session) {
	resp := SettingsResponse{
		Settings: sess.Store().Snapshot(),
		State:    sess.State(),
		Saving:   sess.Saving(),
	}
	if err := sess.LastLoadError(); err != nil {
		resp.LoadError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bookingpage.ErrUnknownStep):
		http.Error(w, `{"error": "unknown step"}`, http.StatusNotFound)
	case errors.Is(err, bookingpage.ErrInvalidSteps),
		errors.Is(err, bookingpage.ErrStepIndex),
		errors.Is(err, bookingpage.ErrInvalidLayout),
		errors.Is(err, bookingpage.ErrInvalidButtonStyle),
		errors.Is(err, bookingpage.ErrMissingCustomText):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("booking page update failed", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		if strings.Contains(err.Error(), "unknown field") {
			msg = "unknown field in body"
		}
		http.Error(w, `{"error": "`+msg+`"}`, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
