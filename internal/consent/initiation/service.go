// Package initiation starts consent interactions against the consent service.
package initiation

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cmsportal/internal/cms"
	"cmsportal/internal/consent/models"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/requestcontext"
)

// Backend is the slice of the consent service API initiation needs.
type Backend interface {
	ActivePurposes(ctx context.Context, dataFiduciaryID string) ([]cms.ActivePurpose, error)
	InitiateConsent(ctx context.Context, req cms.InitiateConsentRequest) (*cms.InitiateConsentResponse, error)
}

type IdentityResolver interface {
	GetOrCreateUserID(ctx context.Context, scope string) (string, error)
}

type Metrics interface {
	IncrementConsentsInitiated()
}

type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

// Contact is optional principal contact data forwarded on initiation.
type Contact struct {
	Email    string
	Phone    string
	Metadata map[string]any
}

type Request struct {
	DataFiduciaryID string
	UserID          string
	PurposeIDs      []string
	DurationDays    int
	LanguageCode    string
	Contact         Contact
	RedirectURL     string
}

type Result struct {
	ReferenceID string    `json:"cms_request_id"`
	NoticeURL   string    `json:"notice_url"`
	NoticePath  string    `json:"notice_path"`
	Status      string    `json:"status"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
	Reused      bool      `json:"reused"`
}

// Defaults fill Start requests.
type Defaults struct {
	DataFiduciaryID string
	DurationDays    int
	LanguageCode    string
	Contact         Contact
	RedirectURL     string
}

// rememberFor bounds how long a completed initiation without a backend
// expiry is handed out again.
const rememberFor = 30 * time.Minute

type remembered struct {
	result Result
	until  time.Time
}

// Service initiates at most one consent interaction per identity and
// fiduciary at a time.
type Service struct {
	backend  Backend
	identity IdentityResolver
	defaults Defaults
	logger   *slog.Logger
	metrics  Metrics
	auditor  AuditRecorder

	group singleflight.Group
	mu    sync.Mutex
	done  map[string]remembered
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a AuditRecorder) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func New(backend Backend, identity IdentityResolver, defaults Defaults, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		identity: identity,
		defaults: defaults,
		logger:   slog.Default(),
		done:     make(map[string]remembered),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start is the landing flow: resolve the device's identity, fetch every
// active purpose of the configured fiduciary and initiate with all of them.
func (s *Service) Start(ctx context.Context, scope string) (Result, error) {
	userID, err := s.identity.GetOrCreateUserID(ctx, scope)
	if err != nil || userID == "" {
		return Result{}, dErrors.New(dErrors.CodePreconditionFailed, "identity is not ready")
	}
	if s.defaults.DataFiduciaryID == "" {
		return Result{}, dErrors.New(dErrors.CodePreconditionFailed, "no data fiduciary configured")
	}

	if r, ok := s.lookup(key(userID, s.defaults.DataFiduciaryID), requestcontext.Now(ctx)); ok {
		return r, nil
	}

	active, err := s.backend.ActivePurposes(ctx, s.defaults.DataFiduciaryID)
	if err != nil {
		return Result{}, err
	}
	ids := make([]string, 0, len(active))
	for _, p := range active {
		if p.PurposeID != "" {
			ids = append(ids, p.PurposeID)
		}
	}

	return s.Initiate(ctx, Request{
		DataFiduciaryID: s.defaults.DataFiduciaryID,
		UserID:          userID,
		PurposeIDs:      ids,
		DurationDays:    s.defaults.DurationDays,
		LanguageCode:    s.defaults.LanguageCode,
		Contact:         s.defaults.Contact,
		RedirectURL:     s.defaults.RedirectURL,
	})
}

// Initiate creates a consent request. Missing fiduciary, user or purposes is
// a precondition failure and no request is issued. A completed initiation for
// the same identity and fiduciary is returned again instead of re-initiating.
func (s *Service) Initiate(ctx context.Context, req Request) (Result, error) {
	if req.DataFiduciaryID == "" || req.UserID == "" || len(req.PurposeIDs) == 0 {
		return Result{}, dErrors.New(dErrors.CodePreconditionFailed, "initiation preconditions not met")
	}

	k := key(req.UserID, req.DataFiduciaryID)
	if r, ok := s.lookup(k, requestcontext.Now(ctx)); ok {
		return r, nil
	}

	v, err, _ := s.group.Do(k, func() (any, error) {
		if r, ok := s.lookup(k, requestcontext.Now(ctx)); ok {
			return r, nil
		}
		return s.initiate(ctx, k, req)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) initiate(ctx context.Context, k string, req Request) (Result, error) {
	resp, err := s.backend.InitiateConsent(ctx, cms.InitiateConsentRequest{
		DataFiduciaryID: req.DataFiduciaryID,
		UserID:          req.UserID,
		Purposes:        req.PurposeIDs,
		Duration:        req.DurationDays,
		Language:        req.LanguageCode,
		Metadata:        metadataOrEmpty(req.Contact.Metadata),
		RedirectURL:     req.RedirectURL,
		Email:           req.Contact.Email,
		Phone:           req.Contact.Phone,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "consent initiation failed",
			"request_id", requestcontext.RequestID(ctx),
			"data_fiduciary_id", req.DataFiduciaryID,
			"error", err,
		)
		return Result{}, err
	}
	if resp.CMSRequestID == "" {
		return Result{}, dErrors.New(dErrors.CodeBadRequest, "consent service returned no request id")
	}

	now := requestcontext.Now(ctx)
	result := Result{
		ReferenceID: resp.CMSRequestID,
		NoticeURL:   resp.NoticeURL,
		NoticePath:  "/consents/" + url.PathEscape(resp.CMSRequestID),
		Status:      resp.Status,
	}
	until := now.Add(rememberFor)
	if t, ok := models.ParseTime(resp.ExpiresAt); ok {
		result.ExpiresAt = t
		until = t
	}

	s.mu.Lock()
	s.done[k] = remembered{result: result, until: until}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.IncrementConsentsInitiated()
	}
	if s.auditor != nil {
		s.auditor.Record(ctx, audit.Event{
			Type:            audit.EventConsentInitiated,
			UserID:          req.UserID,
			DataFiduciaryID: req.DataFiduciaryID,
			ReferenceID:     resp.CMSRequestID,
			PurposeIDs:      req.PurposeIDs,
			Status:          resp.Status,
		})
	}
	return result, nil
}

// Forget drops the remembered initiation for a consent request once the
// citizen has answered it, so the next Start opens a fresh interaction.
func (s *Service) Forget(_ context.Context, referenceID string) {
	if referenceID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, r := range s.done {
		if r.result.ReferenceID == referenceID {
			delete(s.done, k)
		}
	}
}

func (s *Service) lookup(k string, now time.Time) (Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.done[k]
	if !ok {
		return Result{}, false
	}
	if !now.Before(r.until) {
		delete(s.done, k)
		return Result{}, false
	}
	res := r.result
	res.Reused = true
	return res, true
}

func key(userID, fiduciaryID string) string {
	return fiduciaryID + "\x00" + userID
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
