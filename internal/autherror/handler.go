package autherror

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"cmsportal/internal/platform/middleware"
	"cmsportal/pkg/platform/httputil"
	"cmsportal/pkg/requestcontext"
)

// LandingPath is where the sign-in error is shown.
const LandingPath = "/"

type Handler struct {
	relay  *Relay
	logger *slog.Logger
}

func NewHandler(relay *Relay, logger *slog.Logger) *Handler {
	return &Handler{relay: relay, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.Recovery(h.logger))
		ar.Use(middleware.RequestID)
		ar.Use(middleware.Logger(h.logger))

		ar.Get("/auth/error", h.handleError)
		ar.Get("/auth/error/message", h.handleMessage)
	})
}

// handleError is the identity provider's failure callback. The reason is
// read from message, error_description or error, in that order.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	message := q.Get("message")
	if message == "" {
		message = q.Get("error_description")
	}
	if message == "" {
		message = q.Get("error")
	}

	target := LandingPath
	token, err := h.relay.Encode(message)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign auth error token",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	} else {
		target += "?" + url.Values{"error": {token}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	message, err := h.relay.Decode(r.URL.Query().Get("token"))
	if err != nil {
		h.logger.WarnContext(ctx, "auth error token rejected",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: message})
}
