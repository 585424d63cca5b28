package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cmsportal/internal/cms"
	"cmsportal/internal/platform/metrics"
	"cmsportal/internal/platform/middleware"
	"cmsportal/internal/ratelimit"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/httputil"
	"cmsportal/pkg/platform/middleware/metadata"
	"cmsportal/pkg/platform/middleware/requesttime"
	"cmsportal/pkg/requestcontext"
)

// Catalog is the back-office catalog service.
type Catalog interface {
	ListCategories(ctx context.Context, df string, q cms.ListQuery) (cms.Page[cms.CategoryItem], error)
	CreateCategory(ctx context.Context, df string, p cms.CategoryPayload) (*cms.CategoryItem, error)
	UpdateCategory(ctx context.Context, df, categoryID string, p cms.CategoryPayload) (*cms.CategoryItem, error)
	ToggleCategory(ctx context.Context, df, categoryID string) (*cms.CategoryItem, error)
	DeleteCategory(ctx context.Context, df, categoryID string) error
	ListPurposes(ctx context.Context, df, categoryID string, q cms.ListQuery) (cms.Page[cms.PurposeItem], error)
	CreatePurpose(ctx context.Context, df string, p cms.PurposePayload) (*cms.PurposeItem, error)
	UpdatePurpose(ctx context.Context, df, purposeID string, p cms.PurposePayload) (*cms.PurposeItem, error)
	TogglePurpose(ctx context.Context, df, purposeID string) (*cms.PurposeItem, error)
	DeletePurpose(ctx context.Context, df, purposeID string) error
	ListGroupedCategories(ctx context.Context, q cms.ListQuery) (cms.Page[cms.GroupedFiduciary], error)
}

// Handler serves the DF admin and system admin catalog routes.
type Handler struct {
	logger    *slog.Logger
	catalog   Catalog
	validator middleware.JWTValidator
	metrics   *metrics.Metrics
	limiter   *ratelimit.Limiter
}

func New(catalog Catalog, validator middleware.JWTValidator, logger *slog.Logger, metrics *metrics.Metrics, limiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:    logger,
		catalog:   catalog,
		validator: validator,
		metrics:   metrics,
		limiter:   limiter,
	}
}

// Register mounts the admin routes. Every route needs a bearer token; DF
// routes act on the fiduciary bound to the token.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(adminRouter chi.Router) {
		adminRouter.Use(middleware.Recovery(h.logger))
		adminRouter.Use(middleware.RequestID)
		adminRouter.Use(middleware.Logger(h.logger))
		adminRouter.Use(middleware.Timeout(30 * time.Second))
		adminRouter.Use(middleware.ContentTypeJSON)
		adminRouter.Use(middleware.LatencyMiddleware(h.metrics))
		adminRouter.Use(requesttime.Middleware)
		adminRouter.Use(metadata.ClientMetadata)
		adminRouter.Use(middleware.RequireAuth(h.validator, h.logger))

		adminRouter.Group(func(dr chi.Router) {
			dr.Use(middleware.RequireRole(h.logger, middleware.RoleDFAdmin))

			dr.Get("/df/categories", h.handleListCategories)
			dr.Get("/df/categories/{categoryID}/purposes", h.handleListPurposes)

			dr.Group(func(wr chi.Router) {
				wr.Use(h.limiter.Middleware(ratelimit.ClassAdminWrite))
				wr.Post("/df/categories", h.handleCreateCategory)
				wr.Put("/df/categories/{categoryID}", h.handleUpdateCategory)
				wr.Patch("/df/categories/{categoryID}/toggle-status", h.handleToggleCategory)
				wr.Delete("/df/categories/{categoryID}", h.handleDeleteCategory)

				wr.Post("/df/purposes", h.handleCreatePurpose)
				wr.Put("/df/purposes/{purposeID}", h.handleUpdatePurpose)
				wr.Patch("/df/purposes/{purposeID}/toggle-status", h.handleTogglePurpose)
				wr.Delete("/df/purposes/{purposeID}", h.handleDeletePurpose)
			})
		})

		adminRouter.Group(func(sr chi.Router) {
			sr.Use(middleware.RequireRole(h.logger, middleware.RoleSysAdmin))

			sr.Get("/sys-admin/categories", h.handleListGrouped)
			sr.Get("/sys-admin/fiduciaries/{dfID}/categories", h.handleListFiduciaryCategories)
			sr.Get("/sys-admin/fiduciaries/{dfID}/categories/{categoryID}/purposes", h.handleListFiduciaryPurposes)
		})
	})
}

// tenant is the fiduciary the DF admin token is bound to.
func tenant(ctx context.Context) string {
	p, _ := requestcontext.PrincipalFrom(ctx)
	return p.DataFiduciaryID
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.catalog.ListCategories(ctx, tenant(ctx), q)
	if err != nil {
		h.writeError(ctx, w, "failed to list categories", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p cms.CategoryPayload
	if !h.decode(w, r, &p) {
		return
	}
	item, err := h.catalog.CreateCategory(ctx, tenant(ctx), p)
	if err != nil {
		h.writeError(ctx, w, "failed to create category", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p cms.CategoryPayload
	if !h.decode(w, r, &p) {
		return
	}
	item, err := h.catalog.UpdateCategory(ctx, tenant(ctx), chi.URLParam(r, "categoryID"), p)
	if err != nil {
		h.writeError(ctx, w, "failed to update category", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleToggleCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := h.catalog.ToggleCategory(ctx, tenant(ctx), chi.URLParam(r, "categoryID"))
	if err != nil {
		h.writeError(ctx, w, "failed to toggle category", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeleteCategory(ctx, tenant(ctx), chi.URLParam(r, "categoryID")); err != nil {
		h.writeError(ctx, w, "failed to delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListPurposes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.listPurposes(w, r, tenant(ctx))
}

func (h *Handler) handleCreatePurpose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p cms.PurposePayload
	if !h.decode(w, r, &p) {
		return
	}
	item, err := h.catalog.CreatePurpose(ctx, tenant(ctx), p)
	if err != nil {
		h.writeError(ctx, w, "failed to create purpose", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) handleUpdatePurpose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var p cms.PurposePayload
	if !h.decode(w, r, &p) {
		return
	}
	item, err := h.catalog.UpdatePurpose(ctx, tenant(ctx), chi.URLParam(r, "purposeID"), p)
	if err != nil {
		h.writeError(ctx, w, "failed to update purpose", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleTogglePurpose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	item, err := h.catalog.TogglePurpose(ctx, tenant(ctx), chi.URLParam(r, "purposeID"))
	if err != nil {
		h.writeError(ctx, w, "failed to toggle purpose", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeletePurpose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.catalog.DeletePurpose(ctx, tenant(ctx), chi.URLParam(r, "purposeID")); err != nil {
		h.writeError(ctx, w, "failed to delete purpose", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListGrouped(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.catalog.ListGroupedCategories(ctx, q)
	if err != nil {
		h.writeError(ctx, w, "failed to list fiduciaries", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleListFiduciaryCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.catalog.ListCategories(ctx, chi.URLParam(r, "dfID"), q)
	if err != nil {
		h.writeError(ctx, w, "failed to list fiduciary categories", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func (h *Handler) handleListFiduciaryPurposes(w http.ResponseWriter, r *http.Request) {
	h.listPurposes(w, r, chi.URLParam(r, "dfID"))
}

func (h *Handler) listPurposes(w http.ResponseWriter, r *http.Request, df string) {
	ctx := r.Context()
	q, err := parseListQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.catalog.ListPurposes(ctx, df, chi.URLParam(r, "categoryID"), q)
	if err != nil {
		h.writeError(ctx, w, "failed to list purposes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// parseListQuery reads page, limit, q, is_active, sort_by and sort_order.
func parseListQuery(r *http.Request) (cms.ListQuery, error) {
	values := r.URL.Query()
	q := cms.ListQuery{
		Q:         values.Get("q"),
		SortBy:    values.Get("sort_by"),
		SortOrder: values.Get("sort_order"),
	}
	var err error
	if q.Page, err = positiveInt(values.Get("page"), "page"); err != nil {
		return q, err
	}
	if q.Limit, err = positiveInt(values.Get("limit"), "limit"); err != nil {
		return q, err
	}
	if raw := values.Get("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return q, dErrors.New(dErrors.CodeBadRequest, "is_active must be true or false")
		}
		q.IsActive = &active
	}
	switch q.SortOrder {
	case "", "asc", "desc":
	default:
		return q, dErrors.New(dErrors.CodeBadRequest, "sort_order must be asc or desc")
	}
	return q, nil
}

func positiveInt(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a positive integer")
	}
	return n, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, "failed to decode catalog request",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return false
	}
	return true
}

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
