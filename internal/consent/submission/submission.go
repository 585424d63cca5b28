// Package submission sends a citizen's explicit selection to the consent
// service and turns the reply into an outcome the UI can act on.
package submission

import (
	"context"
	"log/slog"
	"time"

	"cmsportal/internal/cms"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/platform/middleware/metadata"
	strs "cmsportal/pkg/platform/strings"
	"cmsportal/pkg/requestcontext"
)

const (
	// DefaultRedirect is used when no redirect candidate is known.
	DefaultRedirect = "/"
	// ContinuePath is where the citizen is taken after the auto-continue delay.
	ContinuePath = "/my-consents"

	defaultLanguage      = "en"
	defaultFiduciaryName = "the provider"
)

// ResolveRedirect returns the first non-blank candidate, or DefaultRedirect.
// Callers pass, in order: the submission response's redirect, the notice's
// redirect, the captured referrer and the fiduciary website.
func ResolveRedirect(candidates ...string) string {
	if v := strs.FirstNonEmpty(candidates...); v != "" {
		return v
	}
	return DefaultRedirect
}

type Backend interface {
	SubmitConsent(ctx context.Context, req cms.SubmitConsentRequest) (*cms.SubmitConsentResponse, error)
}

type Metrics interface {
	IncrementConsentsSubmitted()
}

type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

// Input is everything a submission needs from the notice session.
type Input struct {
	ReferenceID        string
	UserID             string
	DataFiduciaryID    string
	SelectedPurposeIDs []string
	LanguageCode       string
	NoticeRedirectURL  string
	Referrer           string
	FiduciaryWebsite   string
	FiduciaryName      string
}

// Outcome is the terminal result of a successful submission.
type Outcome struct {
	ArtifactID      string               `json:"artifact_id"`
	Status          string               `json:"status"`
	GrantedPurposes []cms.GrantedPurpose `json:"granted_purposes"`
	ValidTill       string               `json:"valid_till,omitempty"`
	RedirectURL     string               `json:"redirect_url"`
	RedirectParams  *cms.RedirectParams  `json:"redirect_params,omitempty"`
	FiduciaryName   string               `json:"fiduciary_name"`
	SubmittedAt     time.Time            `json:"submitted_at"`
	ContinueTo      string               `json:"continue_to"`
	ContinueAt      time.Time            `json:"continue_at"`
}

// ShouldContinue reports whether the auto-continue delay has elapsed.
func (o Outcome) ShouldContinue(now time.Time) bool {
	return !now.Before(o.ContinueAt)
}

type Service struct {
	backend       Backend
	continueAfter time.Duration
	logger        *slog.Logger
	metrics       Metrics
	auditor       AuditRecorder
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

func New(backend Backend, continueAfter time.Duration, opts ...Option) *Service {
	s := &Service{
		backend:       backend,
		continueAfter: continueAfter,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit issues the consent submission. Only the explicit selection is sent;
// the consent service adds mandatory purposes. The call is detached from ctx
// cancellation so a navigation away cannot abandon it midway.
func (s *Service) Submit(ctx context.Context, in Input) (Outcome, error) {
	if in.ReferenceID == "" || len(in.SelectedPurposeIDs) == 0 {
		return Outcome{}, dErrors.New(dErrors.CodePreconditionFailed, "nothing selected to submit")
	}
	lang := in.LanguageCode
	if lang == "" {
		lang = defaultLanguage
	}
	userAgent := requestcontext.UserAgent(ctx)

	resp, err := s.backend.SubmitConsent(context.WithoutCancel(ctx), cms.SubmitConsentRequest{
		CMSRequestID:     in.ReferenceID,
		SelectedPurposes: in.SelectedPurposeIDs,
		Agree:            true,
		LanguageCode:     lang,
		UserAgent:        userAgent,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "consent submission failed",
			"request_id", requestcontext.RequestID(ctx),
			"cms_request_id", in.ReferenceID,
			"error", err,
		)
		return Outcome{}, err
	}

	now := requestcontext.Now(ctx)
	name := in.FiduciaryName
	if name == "" {
		name = defaultFiduciaryName
	}
	out := Outcome{
		ArtifactID:      resp.ArtifactID,
		Status:          resp.Status,
		GrantedPurposes: resp.Purposes,
		ValidTill:       resp.ValidTill,
		RedirectURL:     ResolveRedirect(resp.RedirectURL, in.NoticeRedirectURL, in.Referrer, in.FiduciaryWebsite),
		RedirectParams:  resp.RedirectParams,
		FiduciaryName:   name,
		SubmittedAt:     now,
		ContinueTo:      ContinuePath,
		ContinueAt:      now.Add(s.continueAfter),
	}

	if s.metrics != nil {
		s.metrics.IncrementConsentsSubmitted()
	}
	if s.auditor != nil {
		granted := make([]string, 0, len(resp.Purposes))
		for _, p := range resp.Purposes {
			granted = append(granted, p.PurposeID)
		}
		s.auditor.Record(ctx, audit.Event{
			Type:            audit.EventConsentGranted,
			UserID:          in.UserID,
			DataFiduciaryID: in.DataFiduciaryID,
			ReferenceID:     in.ReferenceID,
			ArtifactID:      resp.ArtifactID,
			PurposeIDs:      strs.DedupeAndTrim(granted),
			Status:          resp.Status,
			Device:          metadata.DeviceLabel(userAgent),
		})
	}
	return out, nil
}
