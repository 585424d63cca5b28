// Package cms is the client of the consent-management REST API, the system of
// record for notices, artifacts and the purpose catalog. Calls are never
// retried.
package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/requestcontext"
)

const (
	tracerName      = "cmsportal/internal/cms"
	maxResponseSize = 8 << 20
	defaultFailure  = "request to consent service failed"
)

// Metrics records backend call outcomes.
type Metrics interface {
	ObserveBackendCall(operation, outcome string, seconds float64)
}

// Client talks to the consent-management REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	metrics    Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New builds a Client rooted at baseURL (for example https://host/api/v1).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		tracer:     otel.Tracer(tracerName),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// -----------------------------------------------------------------------------
// Citizen consent operations
// -----------------------------------------------------------------------------

// ActivePurposes lists the purposes a fiduciary currently has active.
func (c *Client) ActivePurposes(ctx context.Context, dataFiduciaryID string) ([]ActivePurpose, error) {
	var out []ActivePurpose
	if err := c.do(ctx, "active_purposes", http.MethodGet, "/purposes/"+seg(dataFiduciaryID)+"/active", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) InitiateConsent(ctx context.Context, req InitiateConsentRequest) (*InitiateConsentResponse, error) {
	var out InitiateConsentResponse
	if err := c.doRequired(ctx, "initiate_consent", http.MethodPost, "/consents/initiate", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetNotice fetches the notice for a consent request. A response without a
// payload is reported as not found.
func (c *Client) GetNotice(ctx context.Context, cmsRequestID string) (*Notice, error) {
	var out Notice
	present, err := c.call(ctx, "get_notice", http.MethodGet, "/consents/"+seg(cmsRequestID), nil, nil, &out)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, dErrors.New(dErrors.CodeNotFound, "Consent notice not found")
	}
	return &out, nil
}

func (c *Client) SubmitConsent(ctx context.Context, req SubmitConsentRequest) (*SubmitConsentResponse, error) {
	var out SubmitConsentResponse
	if err := c.doRequired(ctx, "submit_consent", http.MethodPost, "/consents/submit", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUserConsents(ctx context.Context, dataFiduciaryID, externalUserID string, limit int) (*UserConsents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/consents/" + seg(dataFiduciaryID) + "/users/" + seg(externalUserID) + "/consents"
	var out UserConsents
	if err := c.do(ctx, "list_user_consents", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WithdrawConsent(ctx context.Context, dataFiduciaryID, artifactID string) (*WithdrawConsentResponse, error) {
	path := "/consents/" + seg(dataFiduciaryID) + "/consents/" + seg(artifactID) + "/withdraw"
	var out WithdrawConsentResponse
	if err := c.do(ctx, "withdraw_consent", http.MethodPost, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RenewConsent(ctx context.Context, req RenewConsentRequest) (*RenewConsentResponse, error) {
	var out RenewConsentResponse
	if err := c.do(ctx, "renew_consent", http.MethodPost, "/consents/renew", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// -----------------------------------------------------------------------------
// Back-office catalog operations
// -----------------------------------------------------------------------------

func (c *Client) ListCategories(ctx context.Context, dataFiduciaryID string, q ListQuery) (*Page[CategoryItem], error) {
	var out Page[CategoryItem]
	if err := c.do(ctx, "list_categories", http.MethodGet, "/purpose-categories/"+seg(dataFiduciaryID), q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, dataFiduciaryID string, p CategoryPayload) (*CategoryItem, error) {
	var out CategoryItem
	if err := c.do(ctx, "create_category", http.MethodPost, "/purpose-categories/"+seg(dataFiduciaryID), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, dataFiduciaryID, categoryID string, p CategoryPayload) (*CategoryItem, error) {
	var out CategoryItem
	path := "/purpose-categories/" + seg(dataFiduciaryID) + "/" + seg(categoryID)
	if err := c.do(ctx, "update_category", http.MethodPut, path, nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ToggleCategory(ctx context.Context, dataFiduciaryID, categoryID string) (*CategoryItem, error) {
	var out CategoryItem
	path := "/purpose-categories/" + seg(dataFiduciaryID) + "/" + seg(categoryID) + "/toggle-status"
	if err := c.do(ctx, "toggle_category", http.MethodPatch, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, dataFiduciaryID, categoryID string) error {
	path := "/purpose-categories/" + seg(dataFiduciaryID) + "/" + seg(categoryID)
	return c.do(ctx, "delete_category", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ListPurposes(ctx context.Context, dataFiduciaryID, categoryID string, q ListQuery) (*Page[PurposeItem], error) {
	var out Page[PurposeItem]
	path := "/purpose-categories/" + seg(dataFiduciaryID) + "/category/" + seg(categoryID) + "/purposes"
	if err := c.do(ctx, "list_purposes", http.MethodGet, path, q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreatePurpose(ctx context.Context, dataFiduciaryID string, p PurposePayload) (*PurposeItem, error) {
	var out PurposeItem
	if err := c.do(ctx, "create_purpose", http.MethodPost, "/purposes/"+seg(dataFiduciaryID), nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdatePurpose(ctx context.Context, dataFiduciaryID, purposeID string, p PurposePayload) (*PurposeItem, error) {
	var out PurposeItem
	path := "/purposes/" + seg(dataFiduciaryID) + "/" + seg(purposeID)
	if err := c.do(ctx, "update_purpose", http.MethodPut, path, nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TogglePurpose(ctx context.Context, dataFiduciaryID, purposeID string) (*PurposeItem, error) {
	var out PurposeItem
	path := "/purposes/" + seg(dataFiduciaryID) + "/" + seg(purposeID) + "/toggle-status"
	if err := c.do(ctx, "toggle_purpose", http.MethodPatch, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePurpose(ctx context.Context, dataFiduciaryID, purposeID string) error {
	path := "/purposes/" + seg(dataFiduciaryID) + "/" + seg(purposeID)
	return c.do(ctx, "delete_purpose", http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) ListGroupedCategories(ctx context.Context, q ListQuery) (*Page[GroupedFiduciary], error) {
	var out Page[GroupedFiduciary]
	if err := c.do(ctx, "list_grouped_categories", http.MethodGet, "/purpose-categories/grouped-by-fiduciary", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// -----------------------------------------------------------------------------
// Transport
// -----------------------------------------------------------------------------

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	_, err := c.call(ctx, op, method, path, query, body, out)
	return err
}

// doRequired treats a missing data payload as a failed call.
func (c *Client) doRequired(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	present, err := c.call(ctx, op, method, path, query, body, out)
	if err != nil {
		return err
	}
	if !present {
		return dErrors.New(dErrors.CodeUnavailable, "consent service returned no data")
	}
	return nil
}

func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) (present bool, err error) {
	ctx, span := c.tracer.Start(ctx, "cms."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("cms.operation", op),
		),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		if c.metrics != nil {
			c.metrics.ObserveBackendCall(op, outcome, time.Since(start).Seconds())
		}
		span.End()
	}()

	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "consent service unreachable",
			"operation", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return false, dErrors.Wrap(err, dErrors.CodeTimeout, "consent service timed out")
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "consent service is unreachable")
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "read consent service response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return false, dErrors.New(failureCode(resp.StatusCode), defaultFailure)
		}
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed consent service response")
	}

	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		msg := messageText(env.Message)
		if msg == "" {
			msg = defaultFailure
		}
		return false, dErrors.New(failureCode(resp.StatusCode), msg)
	}

	if !env.hasData() {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "malformed consent service payload")
		}
	}
	return true, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("build %s request", method))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := requestcontext.BearerToken(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}
	return req, nil
}

func seg(s string) string {
	return url.PathEscape(s)
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Q != "" {
		v.Set("q", q.Q)
	}
	if q.IsActive != nil {
		v.Set("is_active", strconv.FormatBool(*q.IsActive))
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
		order := q.SortOrder
		if order == "" {
			order = "asc"
		}
		v.Set("sort_order", order)
	}
	return v
}
