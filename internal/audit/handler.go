package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"cmsportal/internal/platform/middleware"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/platform/httputil"
	"cmsportal/pkg/requestcontext"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Reader is the query side of an audit store.
type Reader interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
	ListByUser(ctx context.Context, userID string) ([]audit.Event, error)
}

// Handler exposes the audit trail to system admins.
type Handler struct {
	reader    Reader
	validator middleware.JWTValidator
	logger    *slog.Logger
}

func NewHandler(reader Reader, validator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, validator: validator, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.Recovery(h.logger))
		ar.Use(middleware.RequestID)
		ar.Use(middleware.Logger(h.logger))
		ar.Use(middleware.Timeout(10 * time.Second))
		ar.Use(middleware.RequireAuth(h.validator, h.logger))
		ar.Use(middleware.RequireRole(h.logger, middleware.RoleSysAdmin))

		ar.Get("/sys-admin/audit-events", h.handleList)
	})
}

type eventResponse struct {
	ID              string    `json:"id"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	Timestamp       time.Time `json:"timestamp"`
	UserID          string    `json:"user_id,omitempty"`
	DataFiduciaryID string    `json:"data_fiduciary_id,omitempty"`
	ReferenceID     string    `json:"reference_id,omitempty"`
	ArtifactID      string    `json:"artifact_id,omitempty"`
	PurposeIDs      []string  `json:"purpose_ids,omitempty"`
	Status          string    `json:"status,omitempty"`
	Detail          string    `json:"detail,omitempty"`
	Device          string    `json:"device,omitempty"`
}

type listResponse struct {
	Events []eventResponse `json:"events"`
}

// handleList returns one user's events when user_id is given, otherwise the
// most recent events.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		events []audit.Event
		err    error
	)
	if userID := q.Get("user_id"); userID != "" {
		events, err = h.reader.ListByUser(ctx, userID)
	} else {
		limit := defaultRecentLimit
		if raw := q.Get("limit"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil || n < 1 || n > maxRecentLimit {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 500"))
				return
			}
			limit = n
		}
		events, err = h.reader.ListRecent(ctx, limit)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read audit events",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit events"))
		return
	}

	out := listResponse{Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, eventResponse{
			ID:              e.ID,
			Type:            string(e.Type),
			Category:        string(e.Type.Category()),
			Timestamp:       e.Timestamp,
			UserID:          e.UserID,
			DataFiduciaryID: e.DataFiduciaryID,
			ReferenceID:     e.ReferenceID,
			ArtifactID:      e.ArtifactID,
			PurposeIDs:      e.PurposeIDs,
			Status:          e.Status,
			Detail:          e.Detail,
			Device:          e.Device,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
