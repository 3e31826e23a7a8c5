package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	h "guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/delivery/http/middleware"
	"guestcheckin/internal/domain"
)

const pingInterval = 30 * time.Second

// Frame is one server-to-client websocket message.
type Frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// Frame types sent to dashboards.
const (
	FrameReady   = "ready"
	FrameCheckIn = "check_in"
	FramePing    = "ping"
)

// Handler serves the live check-in feed of one event.
type Handler struct {
	hub            *Hub
	verifier       domain.TokenVerifier
	events         domain.EventService
	allowedOrigins []string
	logger         *slog.Logger
}

func NewHandler(hub *Hub, verifier domain.TokenVerifier, events domain.EventService, allowedOrigins []string, logger *slog.Logger) *Handler {
	return &Handler{
		hub:            hub,
		verifier:       verifier,
		events:         events,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// ServeCheckIns godoc
// @Summary      Live check-in feed
// @Description  Upgrades to a websocket that streams check_in frames for the event. Browsers pass the bearer token in the token query parameter.
// @Tags         checkins
// @Param        eventID  path   string  true   "Event ID (UUID)"
// @Param        token    query  string  false  "Bearer token when the Authorization header cannot be set"
// @Success      101
// @Failure      401  {object}  helpers.APIResponse
// @Failure      403  {object}  helpers.APIResponse
// @Failure      404  {object}  helpers.APIResponse
// @Router       /events/{eventID}/checkins/ws [get]
func (hd *Handler) ServeCheckIns(w http.ResponseWriter, r *http.Request) {
	eventID, ok := h.PathUUID(w, r, "eventID")
	if !ok {
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		var problem string
		if token, problem = middleware.BearerToken(r); problem != "" {
			h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, problem)
			return
		}
	}
	userID, err := hd.verifier.Verify(token)
	if err != nil {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
		return
	}
	if _, err := hd.events.GetEvent(r.Context(), eventID, userID); err != nil {
		h.WriteServiceError(w, err, "failed to load event")
		return
	}

	server := websocket.Server{
		Handshake: hd.checkOrigin,
		Handler: func(conn *websocket.Conn) {
			hd.stream(conn, eventID)
		},
	}
	server.ServeHTTP(w, r)
}

func (hd *Handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	if !middleware.OriginAllowed(hd.allowedOrigins, origin) {
		return fmt.Errorf("origin %q not allowed", origin)
	}
	return nil
}

func (hd *Handler) stream(conn *websocket.Conn, eventID string) {
	defer func() {
		_ = conn.Close()
	}()

	sub := hd.hub.Subscribe(eventID)
	defer sub.Close()

	ctx, cancel := context.WithCancel(conn.Request().Context())
	defer cancel()
	// The feed is one-way; reading only detects the client going away.
	go func() {
		defer cancel()
		var discard json.RawMessage
		dec := json.NewDecoder(conn)
		for dec.Decode(&discard) == nil {
		}
	}()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(Frame{Type: FrameReady, Payload: map[string]string{"event_id": eventID}}); err != nil {
		return
	}
	hd.logger.DebugContext(ctx, "check-in feed opened", "event_id", eventID)

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-sub.C:
			if !ok {
				return
			}
			if err := enc.Encode(Frame{Type: FrameCheckIn, Payload: notice}); err != nil {
				return
			}
		case <-ping.C:
			if err := enc.Encode(Frame{Type: FramePing}); err != nil {
				return
			}
		}
	}
}
