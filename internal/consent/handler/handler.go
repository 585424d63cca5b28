package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cmsportal/internal/consent/initiation"
	"cmsportal/internal/consent/lifecycle"
	"cmsportal/internal/consent/notice"
	"cmsportal/internal/consent/submission"
	"cmsportal/internal/platform/metrics"
	"cmsportal/internal/platform/middleware"
	"cmsportal/internal/ratelimit"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/httputil"
	"cmsportal/pkg/platform/middleware/device"
	"cmsportal/pkg/platform/middleware/metadata"
	"cmsportal/pkg/platform/middleware/requesttime"
	"cmsportal/pkg/requestcontext"
)

// Initiator starts the landing consent flow for a device.
type Initiator interface {
	Start(ctx context.Context, scope string) (initiation.Result, error)
}

// Notices drives notice sessions.
type Notices interface {
	Load(ctx context.Context, scope, ref string, opts notice.LoadOptions) (notice.View, error)
	ToggleCategory(ctx context.Context, scope, ref, categoryID string) (notice.View, error)
	TogglePurpose(ctx context.Context, scope, ref, purposeID string) (notice.View, error)
	SetAgree(ctx context.Context, scope, ref string, agree bool) (notice.View, error)
	Submit(ctx context.Context, scope, ref string) (submission.Outcome, error)
	Outcome(ctx context.Context, scope, ref string) (submission.Outcome, error)
	Close(scope, ref string)
}

// Lifecycle manages granted consents.
type Lifecycle interface {
	List(ctx context.Context, scope, fiduciaryID string, limit int) (lifecycle.Listing, error)
	RequestWithdraw(ctx context.Context, scope, fiduciaryID, artifactID string) (lifecycle.Confirmation, error)
	RequestRenew(ctx context.Context, scope, fiduciaryID, artifactID string) (lifecycle.Confirmation, error)
	Confirm(ctx context.Context, scope, token string) (lifecycle.Result, error)
	Cancel(scope, token string)
}

// Handler serves the citizen consent routes.
type Handler struct {
	logger     *slog.Logger
	initiator  Initiator
	notices    Notices
	lifecycle  Lifecycle
	metrics    *metrics.Metrics
	deviceConf device.Config
	limiter    *ratelimit.Limiter
}

// New creates a new consent Handler.
func New(
	initiator Initiator,
	notices Notices,
	lifecycle Lifecycle,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	deviceConf device.Config,
	limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:     logger,
		initiator:  initiator,
		notices:    notices,
		lifecycle:  lifecycle,
		metrics:    metrics,
		deviceConf: deviceConf,
		limiter:    limiter,
	}
}

// Register registers the citizen routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(consentRouter chi.Router) {
		consentRouter.Use(middleware.Recovery(h.logger))
		consentRouter.Use(middleware.RequestID)
		consentRouter.Use(middleware.Logger(h.logger))
		consentRouter.Use(middleware.Timeout(30 * time.Second))
		consentRouter.Use(middleware.ContentTypeJSON)
		consentRouter.Use(middleware.LatencyMiddleware(h.metrics))
		consentRouter.Use(requesttime.Middleware)
		consentRouter.Use(metadata.ClientMetadata)
		consentRouter.Use(device.Middleware(h.deviceConf))

		consentRouter.With(h.limiter.Middleware(ratelimit.ClassInitiate)).Post("/consent/start", h.handleStart)

		consentRouter.Route("/consents/{ref}", func(cr chi.Router) {
			cr.Get("/", h.handleLoadNotice)
			cr.Delete("/", h.handleCloseNotice)
			cr.Post("/categories/{categoryID}/toggle", h.handleToggleCategory)
			cr.Post("/purposes/{purposeID}/toggle", h.handleTogglePurpose)
			cr.Post("/agree", h.handleAgree)
			cr.With(h.limiter.Middleware(ratelimit.ClassSubmit)).Post("/submit", h.handleSubmit)
			cr.Get("/outcome", h.handleOutcome)
		})

		consentRouter.Get("/my-consents", h.handleListConsents)
		consentRouter.Group(func(lr chi.Router) {
			lr.Use(h.limiter.Middleware(ratelimit.ClassLifecycle))
			lr.Post("/my-consents/{artifactID}/withdraw", h.handleRequestWithdraw)
			lr.Post("/my-consents/{artifactID}/renew", h.handleRequestRenew)
			lr.Post("/my-consents/confirmations/{token}", h.handleConfirm)
		})
		consentRouter.Delete("/my-consents/confirmations/{token}", h.handleCancel)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	result, err := h.initiator.Start(ctx, requestcontext.DeviceID(ctx))
	if err != nil {
		h.writeError(ctx, w, "failed to start consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLoadNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	referrer := r.URL.Query().Get("referrer")
	if referrer == "" {
		referrer = requestcontext.Referer(ctx)
	}
	view, err := h.notices.Load(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"), notice.LoadOptions{
		Language: r.URL.Query().Get("lang"),
		Referrer: referrer,
	})
	if err != nil {
		if view.Error != nil {
			// the error view carries the back URL the UI offers
			httputil.WriteJSON(w, httputil.StatusFor(view.Error.Code), view)
			return
		}
		h.writeError(ctx, w, "failed to load consent notice", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) handleCloseNotice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.notices.Close(requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.notices.ToggleCategory(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"), chi.URLParam(r, "categoryID"))
	h.writeView(ctx, w, view, err)
}

func (h *Handler) handleTogglePurpose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.notices.TogglePurpose(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"), chi.URLParam(r, "purposeID"))
	h.writeView(ctx, w, view, err)
}

type agreeRequest struct {
	Agree *bool `json:"agree"`
}

func (h *Handler) handleAgree(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req agreeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Agree == nil {
		h.logger.WarnContext(ctx, "invalid agree request",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "agree must be a boolean"))
		return
	}
	view, err := h.notices.SetAgree(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"), *req.Agree)
	h.writeView(ctx, w, view, err)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.notices.Submit(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(ctx, w, "failed to submit consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcomeResponse(out, requestcontext.Now(ctx)))
}

func (h *Handler) handleOutcome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	out, err := h.notices.Outcome(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "ref"))
	if err != nil {
		h.writeError(ctx, w, "failed to read consent outcome", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, outcomeResponse(out, requestcontext.Now(ctx)))
}

type outcomeBody struct {
	submission.Outcome
	ShouldContinue bool `json:"should_continue"`
}

func outcomeResponse(out submission.Outcome, now time.Time) outcomeBody {
	return outcomeBody{Outcome: out, ShouldContinue: out.ShouldContinue(now)}
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	listing, err := h.lifecycle.List(ctx, requestcontext.DeviceID(ctx), r.URL.Query().Get("data_fiduciary_id"), limit)
	if err != nil {
		h.writeError(ctx, w, "failed to list consents", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

func (h *Handler) handleRequestWithdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.lifecycle.RequestWithdraw(ctx, requestcontext.DeviceID(ctx), r.URL.Query().Get("data_fiduciary_id"), chi.URLParam(r, "artifactID"))
	if err != nil {
		h.writeError(ctx, w, "failed to request withdrawal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, c)
}

func (h *Handler) handleRequestRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c, err := h.lifecycle.RequestRenew(ctx, requestcontext.DeviceID(ctx), r.URL.Query().Get("data_fiduciary_id"), chi.URLParam(r, "artifactID"))
	if err != nil {
		h.writeError(ctx, w, "failed to request renewal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, c)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := h.lifecycle.Confirm(ctx, requestcontext.DeviceID(ctx), chi.URLParam(r, "token"))
	if err != nil {
		h.writeError(ctx, w, "failed to confirm consent action", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.lifecycle.Cancel(requestcontext.DeviceID(ctx), chi.URLParam(r, "token"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeView(ctx context.Context, w http.ResponseWriter, view notice.View, err error) {
	if err != nil {
		h.writeError(ctx, w, "consent notice update rejected", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// writeError logs at a level matching the failure and writes the coded error.
// Errors without a domain code are internal and never leak their text.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}
