package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"guestcheckin/internal/delivery/http/controllers"
	h "guestcheckin/internal/delivery/http/helpers"
	"guestcheckin/internal/delivery/http/middleware"
	"guestcheckin/internal/delivery/http/realtime"
)

// Controllers groups the handlers mounted by NewRouter.
type Controllers struct {
	Auth     *controllers.AuthController
	Event    *controllers.EventController
	Guest    *controllers.GuestController
	Scan     *controllers.ScanController
	Realtime *realtime.Handler
}

// Middlewares are the per-route wrappers applied by NewRouter.
type Middlewares struct {
	RequireAuth func(http.HandlerFunc) http.HandlerFunc
	ScanLimit   func(http.HandlerFunc) http.HandlerFunc
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(c Controllers, m Middlewares) *http.ServeMux {
	mux := http.NewServeMux()
	auth := m.RequireAuth
	scan := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(m.ScanLimit(next))
	}

	mux.HandleFunc("GET /health", health)

	// Auth
	mux.HandleFunc("POST /auth/signup", c.Auth.SignUp)
	mux.HandleFunc("POST /auth/login", c.Auth.Login)
	mux.HandleFunc("GET /auth/me", auth(c.Auth.Me))

	// Events
	mux.HandleFunc("POST /events", auth(c.Event.CreateEvent))
	mux.HandleFunc("GET /events", auth(c.Event.ListEvents))
	mux.HandleFunc("GET /events/{eventID}", auth(c.Event.GetEvent))
	mux.HandleFunc("PUT /events/{eventID}", auth(c.Event.ReplaceEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(c.Event.DeleteEvent))
	mux.HandleFunc("GET /events/{eventID}/stats", auth(c.Event.GetEventStats))

	// Guests
	mux.HandleFunc("POST /events/{eventID}/guests", auth(c.Guest.AddGuest))
	mux.HandleFunc("GET /events/{eventID}/guests", auth(c.Guest.ListGuests))
	mux.HandleFunc("GET /events/{eventID}/guests/{guestID}", auth(c.Guest.GetGuest))
	mux.HandleFunc("PATCH /events/{eventID}/guests/{guestID}", auth(c.Guest.UpdateGuest))
	mux.HandleFunc("DELETE /events/{eventID}/guests/{guestID}", auth(c.Guest.DeleteGuest))
	mux.HandleFunc("GET /events/{eventID}/guests/{guestID}/invitation", auth(c.Guest.GetInvitation))
	mux.HandleFunc("POST /events/{eventID}/guests/{guestID}/invitation/send", auth(c.Guest.SendInvitation))

	// Scanning
	mux.HandleFunc("POST /events/{eventID}/scans", scan(c.Scan.Scan))
	mux.HandleFunc("POST /events/{eventID}/scans/image", scan(c.Scan.ScanImage))

	// Live check-in feed; authenticates itself so browsers can pass ?token=
	mux.HandleFunc("GET /events/{eventID}/checkins/ws", c.Realtime.ServeCheckIns)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

// NewHandler wraps the router with CORS and request logging.
func NewHandler(mux *http.ServeMux, allowedOrigins []string, logger *slog.Logger) http.Handler {
	return middleware.LoggingMiddleware(logger, middleware.CORS(allowedOrigins, mux))
}

// health godoc
// @Summary Liveness probe
// @Tags system
// @Produce json
// @Success 200 {object} helpers.APIResponse
// @Router /health [get]
func health(w http.ResponseWriter, _ *http.Request) {
	h.WriteJSONSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}
