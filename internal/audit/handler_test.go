package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"cmsportal/internal/platform/middleware"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/platform/audit/store/memory"
	"cmsportal/pkg/testutil"
)

type tokenValidator map[string]*middleware.JWTClaims

func (v tokenValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

type failingReader struct{}

func (failingReader) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, errors.New("connection refused")
}

func (failingReader) ListByUser(context.Context, string) ([]audit.Event, error) {
	return nil, errors.New("connection refused")
}

type AuditHandlerSuite struct {
	suite.Suite
	store     *memory.InMemoryStore
	validator tokenValidator
	logger    *slog.Logger
	router    http.Handler
}

func TestAuditHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuditHandlerSuite))
}

func (s *AuditHandlerSuite) SetupTest() {
	s.store = memory.NewInMemoryStore()
	s.validator = tokenValidator{
		"sys": {UserID: "root", Role: middleware.RoleSysAdmin},
		"df":  {UserID: "admin", Role: middleware.RoleDFAdmin, DataFiduciaryID: "df-1"},
	}
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = s.routerFor(s.store)

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.Append(ctx, audit.Event{ID: "e1", Type: audit.EventConsentGranted, UserID: "u-1", Timestamp: base}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{ID: "e2", Type: audit.EventCatalogChanged, UserID: "admin", Timestamp: base.Add(time.Minute)}))
}

func (s *AuditHandlerSuite) routerFor(reader Reader) http.Handler {
	r := chi.NewRouter()
	NewHandler(reader, s.validator, s.logger).Register(r)
	return r
}

func (s *AuditHandlerSuite) get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return testutil.DoRequest(router, req)
}

func (s *AuditHandlerSuite) TestRecentEvents() {
	rr := s.get(s.router, "/sys-admin/audit-events?limit=10", "sys")
	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.DecodeJSON[listResponse](s.T(), rr)
	s.Len(body.Events, 2)
}

func (s *AuditHandlerSuite) TestEventsByUser() {
	rr := s.get(s.router, "/sys-admin/audit-events?user_id=u-1", "sys")
	s.Require().Equal(http.StatusOK, rr.Code)
	body := testutil.DecodeJSON[listResponse](s.T(), rr)
	s.Require().Len(body.Events, 1)
	s.Equal("consent_granted", body.Events[0].Type)
	s.Equal("compliance", body.Events[0].Category)
}

func (s *AuditHandlerSuite) TestRejectsBadLimit() {
	rr := s.get(s.router, "/sys-admin/audit-events?limit=0", "sys")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *AuditHandlerSuite) TestDFAdminForbidden() {
	rr := s.get(s.router, "/sys-admin/audit-events", "df")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *AuditHandlerSuite) TestStoreFailureIsInternal() {
	rr := s.get(s.routerFor(failingReader{}), "/sys-admin/audit-events", "sys")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}
