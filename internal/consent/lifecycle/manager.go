// Package lifecycle lists a citizen's consent artifacts and runs withdraw and
// renew behind an explicit confirmation step.
package lifecycle

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cmsportal/internal/cms"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/requestcontext"
)

const (
	// RenewExtension is the fixed extension every renewal asks for.
	RenewExtension = "+180d"
	// RenewInitiatedBy marks renewals started by the citizen.
	RenewInitiatedBy = "USER"

	// DefaultListLimit fetches every artifact in one page.
	DefaultListLimit = 100000

	confirmationTTL = 10 * time.Minute
)

type Backend interface {
	ListUserConsents(ctx context.Context, dataFiduciaryID, externalUserID string, limit int) (*cms.UserConsents, error)
	WithdrawConsent(ctx context.Context, dataFiduciaryID, artifactID string) (*cms.WithdrawConsentResponse, error)
	RenewConsent(ctx context.Context, req cms.RenewConsentRequest) (*cms.RenewConsentResponse, error)
}

type IdentityResolver interface {
	GetOrCreateUserID(ctx context.Context, scope string) (string, error)
}

type Metrics interface {
	IncrementConsentsWithdrawn()
	IncrementConsentsRenewed()
}

type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

type Action string

const (
	ActionWithdraw Action = "withdraw"
	ActionRenew    Action = "renew"
)

// Item is one artifact as the consent-management view shows it.
type Item struct {
	ArtifactID           string               `json:"consent_artifact_id"`
	DataFiduciaryID      string               `json:"data_fiduciary_id"`
	Status               string               `json:"status"`
	StatusBadge          string               `json:"status_badge"`
	DisplayExpired       bool                 `json:"display_expired"`
	ShowExpiredIndicator bool                 `json:"show_expired_indicator"`
	Deleted              bool                 `json:"is_deleted"`
	CanWithdrawOrRenew   bool                 `json:"can_withdraw_or_renew"`
	Purposes             []cms.GrantedPurpose `json:"purposes"`
	RequestedAt          string               `json:"requested_at,omitempty"`
	GrantedAt            string               `json:"granted_at,omitempty"`
	ExpiresAt            string               `json:"expires_at,omitempty"`
	Metadata             map[string]any       `json:"metadata,omitempty"`
}

type Listing struct {
	DataFiduciaryID string         `json:"data_fiduciary_id"`
	Items           []Item         `json:"items"`
	Pagination      cms.Pagination `json:"pagination"`
	FetchedAt       time.Time      `json:"fetched_at"`
}

// Confirmation is a pending withdraw or renew awaiting the citizen's
// explicit confirmation.
type Confirmation struct {
	Token           string    `json:"token"`
	Action          Action    `json:"action"`
	ArtifactID      string    `json:"consent_artifact_id"`
	DataFiduciaryID string    `json:"data_fiduciary_id"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type Renewal struct {
	RenewalRequestID   string                `json:"renewal_request_id"`
	Status             string                `json:"status"`
	CurrentExpiresAt   string                `json:"current_expires_at"`
	RequestedExpiresAt string                `json:"requested_expires_at"`
	Transparency       *cms.TransparencyInfo `json:"transparency_info,omitempty"`
	Message            string                `json:"message,omitempty"`
}

// Result of a confirmed action, with the refreshed listing.
type Result struct {
	Action     Action                       `json:"action"`
	ArtifactID string                       `json:"consent_artifact_id"`
	Withdrawal *cms.WithdrawConsentResponse `json:"withdrawal,omitempty"`
	Renewal    *Renewal                     `json:"renewal,omitempty"`
	Listing    Listing                      `json:"listing"`
}

type pending struct {
	Confirmation
	scope  string
	userID string
}

type listingKey struct {
	scope       string
	fiduciaryID string
}

type Manager struct {
	backend     Backend
	identity    IdentityResolver
	fiduciaryID string
	listLimit   int
	logger      *slog.Logger
	metrics     Metrics
	auditor     AuditRecorder

	mu       sync.Mutex
	listings map[listingKey]Listing
	pending  map[string]pending
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

func WithAuditor(a AuditRecorder) Option {
	return func(m *Manager) {
		m.auditor = a
	}
}

func WithListLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.listLimit = n
		}
	}
}

// New creates a Manager. fiduciaryID is used when a call names none.
func New(backend Backend, identity IdentityResolver, fiduciaryID string, opts ...Option) *Manager {
	m := &Manager{
		backend:     backend,
		identity:    identity,
		fiduciaryID: fiduciaryID,
		listLimit:   DefaultListLimit,
		logger:      slog.Default(),
		listings:    make(map[listingKey]Listing),
		pending:     make(map[string]pending),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// List fetches the device identity's artifacts for a fiduciary.
func (m *Manager) List(ctx context.Context, scope, fiduciaryID string, limit int) (Listing, error) {
	userID, err := m.userID(ctx, scope)
	if err != nil {
		return Listing{}, err
	}
	return m.list(ctx, scope, userID, m.fiduciary(fiduciaryID), limit)
}

func (m *Manager) list(ctx context.Context, scope, userID, fiduciaryID string, limit int) (Listing, error) {
	if fiduciaryID == "" {
		return Listing{}, dErrors.New(dErrors.CodePreconditionFailed, "no data fiduciary selected")
	}
	if limit <= 0 {
		limit = m.listLimit
	}
	resp, err := m.backend.ListUserConsents(ctx, fiduciaryID, userID, limit)
	if err != nil {
		return Listing{}, err
	}

	now := requestcontext.Now(ctx)
	listing := Listing{
		DataFiduciaryID: fiduciaryID,
		Items:           make([]Item, 0, len(resp.Data)),
		Pagination:      resp.Meta.Pagination,
		FetchedAt:       now,
	}
	for _, a := range resp.Data {
		listing.Items = append(listing.Items, toItem(a, now))
	}

	m.mu.Lock()
	m.listings[listingKey{scope: scope, fiduciaryID: fiduciaryID}] = listing
	m.mu.Unlock()
	return listing, nil
}

func toItem(a cms.Artifact, now time.Time) Item {
	expired := DisplayExpired(a.ExpiresAt, now)
	return Item{
		ArtifactID:           a.ConsentArtifactID,
		DataFiduciaryID:      a.DataFiduciaryID,
		Status:               a.Status,
		StatusBadge:          StatusBadge(a.Status),
		DisplayExpired:       expired,
		ShowExpiredIndicator: expired && strings.EqualFold(a.Status, StatusActive),
		Deleted:              a.IsDeleted,
		CanWithdrawOrRenew:   CanWithdrawOrRenew(a.Status, a.IsDeleted),
		Purposes:             a.Purposes,
		RequestedAt:          a.RequestedAt,
		GrantedAt:            a.GrantedAt,
		ExpiresAt:            a.ExpiresAt,
		Metadata:             a.Metadata,
	}
}

// RequestWithdraw opens a confirmation for withdrawing an artifact from the
// last listing. No backend call is made until Confirm.
func (m *Manager) RequestWithdraw(ctx context.Context, scope, fiduciaryID, artifactID string) (Confirmation, error) {
	return m.request(ctx, scope, m.fiduciary(fiduciaryID), artifactID, ActionWithdraw)
}

// RequestRenew opens a confirmation for renewing an artifact.
func (m *Manager) RequestRenew(ctx context.Context, scope, fiduciaryID, artifactID string) (Confirmation, error) {
	return m.request(ctx, scope, m.fiduciary(fiduciaryID), artifactID, ActionRenew)
}

func (m *Manager) request(ctx context.Context, scope, fiduciaryID, artifactID string, action Action) (Confirmation, error) {
	userID, err := m.userID(ctx, scope)
	if err != nil {
		return Confirmation{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.listings[listingKey{scope: scope, fiduciaryID: fiduciaryID}]
	if !ok {
		return Confirmation{}, dErrors.New(dErrors.CodeNotFound, "consents have not been listed")
	}
	var item *Item
	for i := range listing.Items {
		if listing.Items[i].ArtifactID == artifactID {
			item = &listing.Items[i]
			break
		}
	}
	if item == nil {
		return Confirmation{}, dErrors.New(dErrors.CodeNotFound, "consent not found")
	}
	if !item.CanWithdrawOrRenew {
		return Confirmation{}, dErrors.New(dErrors.CodeConflict, "this consent cannot be "+actionVerb(action))
	}

	now := requestcontext.Now(ctx)
	m.sweepLocked(now)
	c := Confirmation{
		Token:           uuid.NewString(),
		Action:          action,
		ArtifactID:      artifactID,
		DataFiduciaryID: fiduciaryID,
		ExpiresAt:       now.Add(confirmationTTL),
	}
	m.pending[c.Token] = pending{Confirmation: c, scope: scope, userID: userID}
	return c, nil
}

// Cancel drops a pending confirmation. Unknown tokens are ignored.
func (m *Manager) Cancel(scope, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[token]; ok && p.scope == scope {
		delete(m.pending, token)
	}
}

// Confirm issues the confirmed action. The token is single use. The call is
// detached from ctx cancellation and is never retried; on failure nothing has
// changed and the citizen must request again. On success the listing is
// refreshed.
func (m *Manager) Confirm(ctx context.Context, scope, token string) (Result, error) {
	p, err := m.take(scope, token, requestcontext.Now(ctx))
	if err != nil {
		return Result{}, err
	}
	callCtx := context.WithoutCancel(ctx)

	res := Result{Action: p.Action, ArtifactID: p.ArtifactID}
	event := audit.Event{
		UserID:          p.userID,
		DataFiduciaryID: p.DataFiduciaryID,
		ArtifactID:      p.ArtifactID,
	}
	switch p.Action {
	case ActionWithdraw:
		resp, err := m.backend.WithdrawConsent(callCtx, p.DataFiduciaryID, p.ArtifactID)
		if err != nil {
			m.logFailure(ctx, p, err)
			return Result{}, err
		}
		res.Withdrawal = resp
		event.Type = audit.EventConsentWithdrawn
		event.Status = resp.Status
		if m.metrics != nil {
			m.metrics.IncrementConsentsWithdrawn()
		}
	case ActionRenew:
		resp, err := m.backend.RenewConsent(callCtx, cms.RenewConsentRequest{
			ArtifactID:         p.ArtifactID,
			RequestedExtension: RenewExtension,
			InitiatedBy:        RenewInitiatedBy,
		})
		if err != nil {
			m.logFailure(ctx, p, err)
			return Result{}, err
		}
		res.Renewal = toRenewal(resp)
		event.Type = audit.EventConsentRenewalRequested
		event.Status = resp.Status
		event.Detail = resp.RequestedExpiresAt
		if m.metrics != nil {
			m.metrics.IncrementConsentsRenewed()
		}
	}
	if m.auditor != nil {
		m.auditor.Record(ctx, event)
	}

	listing, err := m.list(callCtx, scope, p.userID, p.DataFiduciaryID, 0)
	if err != nil {
		m.logger.WarnContext(ctx, "consent list refresh failed, patching locally",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		listing = m.patch(ctx, scope, p, res)
	}
	res.Listing = listing
	return res, nil
}

func toRenewal(resp *cms.RenewConsentResponse) *Renewal {
	r := &Renewal{
		RenewalRequestID:   resp.RenewalRequestID,
		Status:             resp.Status,
		CurrentExpiresAt:   resp.CurrentExpiresAt,
		RequestedExpiresAt: resp.RequestedExpiresAt,
		Message:            resp.Message,
	}
	if !resp.TransparencyInfo.IsEmpty() {
		info := resp.TransparencyInfo
		r.Transparency = &info
	}
	return r
}

// patch applies a successful action to the cached listing when the refresh
// failed.
func (m *Manager) patch(ctx context.Context, scope string, p pending, res Result) Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := listingKey{scope: scope, fiduciaryID: p.DataFiduciaryID}
	listing := m.listings[key]
	items := make([]Item, len(listing.Items))
	copy(items, listing.Items)
	now := requestcontext.Now(ctx)
	for i := range items {
		if items[i].ArtifactID != p.ArtifactID || res.Withdrawal == nil {
			continue
		}
		status := res.Withdrawal.Status
		if status == "" {
			status = StatusRevoked
		}
		items[i].Status = status
		items[i].StatusBadge = StatusBadge(status)
		items[i].CanWithdrawOrRenew = CanWithdrawOrRenew(status, items[i].Deleted)
		items[i].ShowExpiredIndicator = items[i].DisplayExpired && strings.EqualFold(status, StatusActive)
	}
	listing.Items = items
	listing.FetchedAt = now
	m.listings[key] = listing
	return listing
}

func (m *Manager) take(scope, token string, now time.Time) (pending, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[token]
	if !ok || p.scope != scope {
		return pending{}, dErrors.New(dErrors.CodeNotFound, "confirmation not found")
	}
	delete(m.pending, token)
	if now.After(p.ExpiresAt) {
		return pending{}, dErrors.New(dErrors.CodeExpired, "confirmation has expired")
	}
	return p, nil
}

func (m *Manager) sweepLocked(now time.Time) {
	for token, p := range m.pending {
		if now.After(p.ExpiresAt) {
			delete(m.pending, token)
		}
	}
}

func (m *Manager) userID(ctx context.Context, scope string) (string, error) {
	id, err := m.identity.GetOrCreateUserID(ctx, scope)
	if err != nil || id == "" {
		return "", dErrors.New(dErrors.CodePreconditionFailed, "identity is not ready")
	}
	return id, nil
}

func (m *Manager) fiduciary(id string) string {
	if id != "" {
		return id
	}
	return m.fiduciaryID
}

func (m *Manager) logFailure(ctx context.Context, p pending, err error) {
	m.logger.WarnContext(ctx, "consent lifecycle action failed",
		"request_id", requestcontext.RequestID(ctx),
		"action", p.Action,
		"consent_artifact_id", p.ArtifactID,
		"error", err,
	)
}

func actionVerb(a Action) string {
	if a == ActionRenew {
		return "renewed"
	}
	return "withdrawn"
}
