package studio

import (
	"net/http"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/booking-page-studio/internal/bookingpage"
	"github.com/wolfman30/booking-page-studio/internal/preview"
)

// StreamMessage is pushed to preview stream clients.
type StreamMessage struct {
	Type       string        `json:"type"` // "preview", "pong", "error"
	BusinessID string        `json:"businessId,omitempty"`
	Version    int64         `json:"version,omitempty"`
	Source     string        `json:"source,omitempty"`
	Inline     *preview.Node `json:"inline,omitempty"`
	FullScreen *preview.Node `json:"fullscreen,omitempty"`
	Text       string        `json:"text,omitempty"`
}

// streamInbound is what stream clients may send.
type streamInbound struct {
	Type string `json:"type"` // "ping"
}

// PreviewStream upgrades to a websocket and pushes both preview variants after every change.
// GET /booking-page/preview/stream
func (h *Handler) PreviewStream(w http.ResponseWriter, r *http.Request) {
	sess := h.withSession(w, r)
	if sess == nil {
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		updates := make(chan bookingpage.Change, 16)
		cancel := sess.Subscribe(func(c bookingpage.Change) {
			select {
			case updates <- c:
			default:
				// Slow client: drop the oldest pending frame and keep the newest.
				select {
				case <-updates:
				default:
				}
				select {
				case updates <- c:
				default:
				}
			}
		})
		defer cancel()

		done := make(chan struct{})
		defer close(done)
		inbound := make(chan streamInbound)
		go func() {
			defer close(inbound)
			for {
				var msg streamInbound
				if err := websocket.JSON.Receive(conn, &msg); err != nil {
					return
				}
				select {
				case inbound <- msg:
				case <-done:
					return
				}
			}
		}()

		current := sess.Store().Snapshot()
		if err := websocket.JSON.Send(conn, h.frame(current, bookingpage.SourceReload)); err != nil {
			return
		}
		h.logger.Debug("preview stream opened", "business_id", current.BusinessID)
		sent := streamCursor{businessID: current.BusinessID, version: current.Version}

		for {
			select {
			case c := <-updates:
				if !sent.advance(c.Settings) {
					continue
				}
				if err := websocket.JSON.Send(conn, h.frame(c.Settings, c.Source)); err != nil {
					h.logger.Debug("preview stream send failed", "business_id", c.Settings.BusinessID, "error", err)
					return
				}
			case msg, ok := <-inbound:
				if !ok {
					h.logger.Debug("preview stream closed", "business_id", current.BusinessID)
					return
				}
				if msg.Type == "ping" {
					_ = websocket.JSON.Send(conn, StreamMessage{Type: "pong"})
				}
			case <-r.Context().Done():
				return
			}
		}
	}).ServeHTTP(w, r)
}

// streamCursor remembers the last frame sent. Listeners run outside the store
// lock, so racing commits may arrive out of order.
type streamCursor struct {
	businessID string
	version    int64
}

// advance reports whether s is newer than the last frame and records it.
func (c *streamCursor) advance(s bookingpage.Settings) bool {
	if s.BusinessID == c.businessID && s.Version <= c.version {
		return false
	}
	c.businessID = s.BusinessID
	c.version = s.Version
	return true
}

func (h *Handler) frame(s bookingpage.Settings, source bookingpage.ChangeSource) StreamMessage {
	return StreamMessage{
		Type:       "preview",
		BusinessID: s.BusinessID,
		Version:    s.Version,
		Source:     string(source),
		Inline:     h.renderer.Inline(s),
		FullScreen: h.renderer.FullScreen(s),
	}
}
