// Package notice drives one citizen's interaction with a consent notice:
// loading, selection, agreement and the hand-off to submission.
package notice

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cmsportal/internal/clientstore"
	"cmsportal/internal/cms"
	"cmsportal/internal/consent/models"
	"cmsportal/internal/consent/submission"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/requestcontext"
)

// Phase is the lifecycle position of a notice session.
type Phase string

const (
	PhaseLoading    Phase = "loading"
	PhaseLoaded     Phase = "loaded"
	PhaseError      Phase = "error"
	PhaseSubmitting Phase = "submitting"
	PhaseSubmitted  Phase = "submitted"
)

const defaultSessionTTL = 2 * time.Hour

type Backend interface {
	GetNotice(ctx context.Context, cmsRequestID string) (*cms.Notice, error)
}

type Submitter interface {
	Submit(ctx context.Context, in submission.Input) (submission.Outcome, error)
}

// ReferrerStore persists the captured referrer per device.
type ReferrerStore interface {
	Get(ctx context.Context, scope, key string) (string, error)
	Set(ctx context.Context, scope, key, value string) error
}

type IdentityResolver interface {
	GetOrCreateUserID(ctx context.Context, scope string) (string, error)
}

// Initiations forgets a remembered initiation once its notice is answered.
type Initiations interface {
	Forget(ctx context.Context, referenceID string)
}

// Translator is best effort: it returns text unchanged when it cannot help.
// A new call for a slot supersedes the one in flight.
type Translator interface {
	Translate(ctx context.Context, slot, text, lang string) string
	Cancel(slotPrefix string)
}

// LoadOptions carry what the browser knows on first mount.
type LoadOptions struct {
	Language string
	Referrer string
}

type sessionKey struct {
	scope string
	ref   string
}

func (k sessionKey) slotPrefix() string {
	return k.scope + "/" + k.ref + "/"
}

type session struct {
	mu        sync.Mutex
	phase     Phase
	notice    *models.Notice
	selection *models.Selection
	agree     bool
	referrer  string
	lang      string
	failure   *Failure
	outcome   *submission.Outcome
	touched   time.Time
	// loads counts Load calls; a fetch installs its notice only when no
	// later Load started while it was in flight.
	loads uint64
}

// Engine holds the notice sessions of every device. A session is keyed by
// device scope and cms_request_id.
type Engine struct {
	backend    Backend
	submitter  Submitter
	referrers  ReferrerStore
	identity   IdentityResolver
	translator Translator
	initiated  Initiations
	logger     *slog.Logger
	sessionTTL time.Duration

	mu       sync.Mutex
	sessions map[sessionKey]*session
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithTranslator(t Translator) Option {
	return func(e *Engine) {
		e.translator = t
	}
}

func WithIdentity(r IdentityResolver) Option {
	return func(e *Engine) {
		e.identity = r
	}
}

func WithInitiations(i Initiations) Option {
	return func(e *Engine) {
		e.initiated = i
	}
}

func WithSessionTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.sessionTTL = d
	}
}

func New(backend Backend, submitter Submitter, referrers ReferrerStore, opts ...Option) *Engine {
	e := &Engine{
		backend:    backend,
		submitter:  submitter,
		referrers:  referrers,
		logger:     slog.Default(),
		sessionTTL: defaultSessionTTL,
		sessions:   make(map[sessionKey]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load fetches the notice and (re)starts its session with an empty selection.
// A submitted session is terminal and is returned as is. On failure the view
// carries a Failure with the URL to send the citizen back to.
func (e *Engine) Load(ctx context.Context, scope, ref string, opts LoadOptions) (View, error) {
	if scope == "" || ref == "" {
		return View{}, dErrors.New(dErrors.CodeInvalidInput, "device and consent request id are required")
	}
	key := sessionKey{scope: scope, ref: ref}
	now := requestcontext.Now(ctx)

	s, created := e.session(key, now)
	s.mu.Lock()
	if created {
		s.referrer = e.captureReferrer(ctx, scope, opts.Referrer)
	}
	if opts.Language != "" {
		s.lang = opts.Language
	}
	if s.phase == PhaseSubmitting || s.phase == PhaseSubmitted {
		v := s.view(ref)
		s.mu.Unlock()
		return e.localize(ctx, key, v), nil
	}

	s.phase = PhaseLoading
	s.failure = nil
	s.loads++
	mine := s.loads
	s.mu.Unlock()

	wire, err := e.backend.GetNotice(ctx, ref)

	s.mu.Lock()
	if s.loads != mine || s.phase == PhaseSubmitting || s.phase == PhaseSubmitted {
		v := s.view(ref)
		s.mu.Unlock()
		return e.localize(ctx, key, v), nil
	}
	if err != nil {
		s.fail(dErrors.CodeOf(err), messageOr(err, "Failed to load consent notice"), "")
		v := s.view(ref)
		s.mu.Unlock()
		e.logger.WarnContext(ctx, "consent notice load failed",
			"request_id", requestcontext.RequestID(ctx),
			"cms_request_id", ref,
			"error", err,
		)
		return v, err
	}

	n := models.NoticeFromCMS(wire)
	if n.ReferenceID == "" {
		n.ReferenceID = ref
	}
	s.notice = &n
	if n.IsExpired(now) {
		s.fail(dErrors.CodeExpired, "This consent notice has expired", n.RedirectURL)
		v := s.view(ref)
		s.mu.Unlock()
		return v, dErrors.New(dErrors.CodeExpired, "consent notice has expired")
	}

	s.phase = PhaseLoaded
	s.selection = models.NewSelection(s.notice)
	s.agree = false
	v := s.view(ref)
	s.mu.Unlock()
	return e.localize(ctx, key, v), nil
}

// View returns the current state without refetching.
func (e *Engine) View(ctx context.Context, scope, ref string) (View, error) {
	key := sessionKey{scope: scope, ref: ref}
	s, ok := e.lookup(key, requestcontext.Now(ctx))
	if !ok {
		return View{}, errNotLoaded
	}
	s.mu.Lock()
	v := s.view(ref)
	s.mu.Unlock()
	return e.localize(ctx, key, v), nil
}

func (e *Engine) ToggleCategory(ctx context.Context, scope, ref, categoryID string) (View, error) {
	return e.mutate(ctx, scope, ref, func(s *session) error {
		return s.selection.ToggleCategory(categoryID)
	})
}

func (e *Engine) TogglePurpose(ctx context.Context, scope, ref, purposeID string) (View, error) {
	return e.mutate(ctx, scope, ref, func(s *session) error {
		return s.selection.TogglePurpose(purposeID)
	})
}

// SetAgree records the explicit agreement checkbox.
func (e *Engine) SetAgree(ctx context.Context, scope, ref string, agree bool) (View, error) {
	return e.mutate(ctx, scope, ref, func(s *session) error {
		s.agree = agree
		return nil
	})
}

// Submit sends the explicit selection. Only a loaded session whose gate is
// open may submit, and a second submit while one is in flight is rejected.
// On failure the session returns to loaded with its selection intact.
func (e *Engine) Submit(ctx context.Context, scope, ref string) (submission.Outcome, error) {
	key := sessionKey{scope: scope, ref: ref}
	s, ok := e.lookup(key, requestcontext.Now(ctx))
	if !ok {
		return submission.Outcome{}, errNotLoaded
	}

	s.mu.Lock()
	if err := s.requireLoaded(); err != nil {
		s.mu.Unlock()
		return submission.Outcome{}, err
	}
	if !s.selection.CanSubmit(s.agree) {
		s.mu.Unlock()
		return submission.Outcome{}, dErrors.New(dErrors.CodePreconditionFailed, "agreement and at least one purpose are required")
	}
	in := submission.Input{
		ReferenceID:        ref,
		DataFiduciaryID:    s.notice.Fiduciary.ID,
		SelectedPurposeIDs: s.selection.SelectedPurposeIDs(),
		LanguageCode:       s.notice.LanguageCode,
		NoticeRedirectURL:  s.notice.RedirectURL,
		Referrer:           s.referrer,
		FiduciaryWebsite:   s.notice.Fiduciary.WebsiteURL,
		FiduciaryName:      s.notice.Fiduciary.Name,
	}
	s.phase = PhaseSubmitting
	s.mu.Unlock()

	if e.identity != nil {
		if id, err := e.identity.GetOrCreateUserID(ctx, scope); err == nil {
			in.UserID = id
		}
	}

	out, err := e.submitter.Submit(ctx, in)

	s.mu.Lock()
	if err != nil {
		s.phase = PhaseLoaded
		s.mu.Unlock()
		return submission.Outcome{}, err
	}
	s.phase = PhaseSubmitted
	s.outcome = &out
	s.mu.Unlock()

	if e.initiated != nil {
		e.initiated.Forget(ctx, ref)
	}
	return out, nil
}

// Outcome returns the result of a submitted session.
func (e *Engine) Outcome(ctx context.Context, scope, ref string) (submission.Outcome, error) {
	s, ok := e.lookup(sessionKey{scope: scope, ref: ref}, requestcontext.Now(ctx))
	if !ok {
		return submission.Outcome{}, errNotLoaded
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return submission.Outcome{}, dErrors.New(dErrors.CodeNotFound, "consent has not been submitted")
	}
	return *s.outcome, nil
}

// Close drops the session and aborts its translations. An in-flight
// submission keeps running to completion.
func (e *Engine) Close(scope, ref string) {
	key := sessionKey{scope: scope, ref: ref}
	if e.translator != nil {
		e.translator.Cancel(key.slotPrefix())
	}
	e.mu.Lock()
	delete(e.sessions, key)
	e.mu.Unlock()
}

var errNotLoaded = dErrors.New(dErrors.CodeNotFound, "consent notice is not loaded")

func (e *Engine) mutate(ctx context.Context, scope, ref string, fn func(*session) error) (View, error) {
	key := sessionKey{scope: scope, ref: ref}
	s, ok := e.lookup(key, requestcontext.Now(ctx))
	if !ok {
		return View{}, errNotLoaded
	}
	s.mu.Lock()
	if err := s.requireLoaded(); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if err := fn(s); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	v := s.view(ref)
	s.mu.Unlock()
	return e.localize(ctx, key, v), nil
}

// session returns the session for key, creating it when absent. Stale
// sessions are evicted on the way.
func (e *Engine) session(key sessionKey, now time.Time) (*session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evictLocked(now)
	if s, ok := e.sessions[key]; ok {
		s.touched = now
		return s, false
	}
	s := &session{phase: PhaseLoading, touched: now}
	e.sessions[key] = s
	return s, true
}

func (e *Engine) lookup(key sessionKey, now time.Time) (*session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[key]
	if ok {
		s.touched = now
	}
	return s, ok
}

func (e *Engine) evictLocked(now time.Time) {
	for k, s := range e.sessions {
		if now.Sub(s.touched) > e.sessionTTL && s.mu.TryLock() {
			if s.phase != PhaseSubmitting {
				delete(e.sessions, k)
			}
			s.mu.Unlock()
		}
	}
}

// captureReferrer prefers what the browser reported, then the persisted
// value. A non-empty result is persisted for later visits.
func (e *Engine) captureReferrer(ctx context.Context, scope, reported string) string {
	referrer := reported
	if referrer == "" && e.referrers != nil {
		if stored, err := e.referrers.Get(ctx, scope, clientstore.KeyReferrer); err == nil {
			referrer = stored
		}
	}
	if referrer != "" && e.referrers != nil {
		if err := e.referrers.Set(ctx, scope, clientstore.KeyReferrer, referrer); err != nil {
			e.logger.WarnContext(ctx, "failed to persist referrer",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
		}
	}
	return referrer
}

func (s *session) requireLoaded() error {
	switch s.phase {
	case PhaseLoaded:
		return nil
	case PhaseSubmitting:
		return dErrors.New(dErrors.CodeConflict, "consent submission already in progress")
	case PhaseSubmitted:
		return dErrors.New(dErrors.CodeConflict, "consent already submitted")
	default:
		return dErrors.New(dErrors.CodeConflict, "consent notice is not loaded")
	}
}

// fail moves the session to the error phase. The back URL prefers the
// notice's own redirect, then the captured referrer, then the root.
func (s *session) fail(code dErrors.Code, message, noticeRedirect string) {
	s.phase = PhaseError
	s.selection = nil
	s.agree = false
	s.failure = &Failure{
		Code:    code,
		Message: message,
		BackURL: submission.ResolveRedirect(noticeRedirect, s.referrer),
	}
}

func messageOr(err error, fallback string) string {
	if m := dErrors.MessageOf(err); m != "" {
		return m
	}
	return fallback
}
