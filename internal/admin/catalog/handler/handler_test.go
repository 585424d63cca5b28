package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cmsportal/internal/admin/catalog/handler/mocks"
	"cmsportal/internal/cms"
	"cmsportal/internal/platform/middleware"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Catalog

const (
	dfToken  = "df-admin-token"
	sysToken = "sys-admin-token"
)

type stubValidator map[string]*middleware.JWTClaims

func (v stubValidator) ValidateToken(token string) (*middleware.JWTClaims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
}

type CatalogHandlerSuite struct {
	suite.Suite
	catalog *mocks.MockCatalog
	router  http.Handler
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerSuite))
}

func (s *CatalogHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalog(ctrl)
	validator := stubValidator{
		dfToken:  {UserID: "u-1", Role: middleware.RoleDFAdmin, DataFiduciaryID: "df-1"},
		sysToken: {UserID: "u-2", Role: middleware.RoleSysAdmin},
	}
	h := New(s.catalog, validator, slog.New(slog.NewTextHandler(io.Discard, nil)), nil, nil)
	r := chi.NewRouter()
	h.Register(r)
	s.router = r
}

func (s *CatalogHandlerSuite) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.router, req)
}

func (s *CatalogHandlerSuite) TestMissingTokenIsUnauthorized() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/df/categories", nil), "")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *CatalogHandlerSuite) TestInvalidTokenIsUnauthorized() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/df/categories", nil), "forged")
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *CatalogHandlerSuite) TestSysAdminCannotUseDFRoutes() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/df/categories", nil), sysToken)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *CatalogHandlerSuite) TestDFAdminCannotUseSysAdminRoutes() {
	rr := s.do(httptest.NewRequest(http.MethodGet, "/sys-admin/categories", nil), dfToken)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *CatalogHandlerSuite) TestListCategoriesUsesTokenTenantAndQuery() {
	active := true
	s.catalog.EXPECT().ListCategories(gomock.Any(), "df-1", cms.ListQuery{
		Page:      2,
		Limit:     5,
		Q:         "mark",
		IsActive:  &active,
		SortBy:    "name",
		SortOrder: "desc",
	}).Return(cms.Page[cms.CategoryItem]{Data: []cms.CategoryItem{{PurposeCategoryID: "X"}}}, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet,
		"/df/categories?page=2&limit=5&q=mark&is_active=true&sort_by=name&sort_order=desc", nil), dfToken)
	s.Equal(http.StatusOK, rr.Code)
	body := testutil.DecodeJSON[cms.Page[cms.CategoryItem]](s.T(), rr)
	s.Equal("X", body.Data[0].PurposeCategoryID)
}

func (s *CatalogHandlerSuite) TestListRejectsBadPaging() {
	for _, q := range []string{"page=0", "limit=abc", "is_active=maybe", "sort_order=up"} {
		rr := s.do(httptest.NewRequest(http.MethodGet, "/df/categories?"+q, nil), dfToken)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	}
}

func (s *CatalogHandlerSuite) TestCreateCategory() {
	s.catalog.EXPECT().CreateCategory(gomock.Any(), "df-1", cms.CategoryPayload{Name: "Research"}).
		Return(&cms.CategoryItem{PurposeCategoryID: "c-9", Name: "Research"}, nil)

	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/df/categories", map[string]string{"name": "Research"}), dfToken)
	s.Equal(http.StatusCreated, rr.Code)
}

func (s *CatalogHandlerSuite) TestCreateCategoryBadJSON() {
	req := httptest.NewRequest(http.MethodPost, "/df/categories", strings.NewReader("{"))
	rr := s.do(req, dfToken)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
}

func (s *CatalogHandlerSuite) TestToggleRejectedSurfacesBackendCode() {
	s.catalog.EXPECT().ToggleCategory(gomock.Any(), "df-1", "X").
		Return(nil, dErrors.New(dErrors.CodeConflict, "category is in use"))

	rr := s.do(httptest.NewRequest(http.MethodPatch, "/df/categories/X/toggle-status", nil), dfToken)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, "conflict")
}

func (s *CatalogHandlerSuite) TestDeletePurpose() {
	s.catalog.EXPECT().DeletePurpose(gomock.Any(), "df-1", "p-1").Return(nil)

	rr := s.do(httptest.NewRequest(http.MethodDelete, "/df/purposes/p-1", nil), dfToken)
	s.Equal(http.StatusNoContent, rr.Code)
}

func (s *CatalogHandlerSuite) TestSysAdminBrowsesAnyFiduciary() {
	s.catalog.EXPECT().ListPurposes(gomock.Any(), "df-7", "c-1", cms.ListQuery{}).
		Return(cms.Page[cms.PurposeItem]{}, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/sys-admin/fiduciaries/df-7/categories/c-1/purposes", nil), sysToken)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *CatalogHandlerSuite) TestSysAdminGrouped() {
	s.catalog.EXPECT().ListGroupedCategories(gomock.Any(), cms.ListQuery{Page: 1}).
		Return(cms.Page[cms.GroupedFiduciary]{Data: []cms.GroupedFiduciary{{DataFiduciaryID: "df-1"}}}, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/sys-admin/categories?page=1", nil), sysToken)
	s.Equal(http.StatusOK, rr.Code)
}

func (s *CatalogHandlerSuite) TestSysAdminCannotMutate() {
	rr := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/df/purposes", map[string]string{"title": "x"}), sysToken)
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}
