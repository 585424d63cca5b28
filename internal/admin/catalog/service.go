// Package catalog runs the back-office purpose catalog screens: data fiduciary
// admins curate categories and purposes, system admins browse across tenants.
//
// Listings are cached per query identity. Mutations patch the cached listings
// ahead of the backend call and restore them exactly when the backend refuses.
package catalog

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"cmsportal/internal/admin/optimistic"
	"cmsportal/internal/cms"
	dErrors "cmsportal/pkg/domain-errors"
	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/requestcontext"
)

// TempIDPrefix marks items created locally that the backend has not assigned
// an id to yet.
const TempIDPrefix = "temp-"

const (
	resourceCategories = "categories"
	resourcePurposes   = "purposes"
	resourceGrouped    = "grouped"
)

type Backend interface {
	ListCategories(ctx context.Context, dataFiduciaryID string, q cms.ListQuery) (*cms.Page[cms.CategoryItem], error)
	CreateCategory(ctx context.Context, dataFiduciaryID string, p cms.CategoryPayload) (*cms.CategoryItem, error)
	UpdateCategory(ctx context.Context, dataFiduciaryID, categoryID string, p cms.CategoryPayload) (*cms.CategoryItem, error)
	ToggleCategory(ctx context.Context, dataFiduciaryID, categoryID string) (*cms.CategoryItem, error)
	DeleteCategory(ctx context.Context, dataFiduciaryID, categoryID string) error
	ListPurposes(ctx context.Context, dataFiduciaryID, categoryID string, q cms.ListQuery) (*cms.Page[cms.PurposeItem], error)
	CreatePurpose(ctx context.Context, dataFiduciaryID string, p cms.PurposePayload) (*cms.PurposeItem, error)
	UpdatePurpose(ctx context.Context, dataFiduciaryID, purposeID string, p cms.PurposePayload) (*cms.PurposeItem, error)
	TogglePurpose(ctx context.Context, dataFiduciaryID, purposeID string) (*cms.PurposeItem, error)
	DeletePurpose(ctx context.Context, dataFiduciaryID, purposeID string) error
	ListGroupedCategories(ctx context.Context, q cms.ListQuery) (*cms.Page[cms.GroupedFiduciary], error)
}

type Metrics interface {
	IncrementOptimisticRollbacks(resource string)
}

type AuditRecorder interface {
	Record(ctx context.Context, event audit.Event)
}

// queryKey is the cache identity of one listing.
type queryKey struct {
	resource   string
	df         string
	categoryID string
	page       int
	limit      int
	q          string
	active     string
	sortBy     string
	sortOrder  string
}

func newKey(resource, df, categoryID string, q cms.ListQuery) queryKey {
	k := queryKey{
		resource:   resource,
		df:         df,
		categoryID: categoryID,
		page:       q.Page,
		limit:      q.Limit,
		q:          strings.TrimSpace(q.Q),
		sortBy:     q.SortBy,
		sortOrder:  q.SortOrder,
	}
	if q.IsActive != nil {
		k.active = strconv.FormatBool(*q.IsActive)
	}
	return k
}

func clonePage[T any](p cms.Page[T]) cms.Page[T] {
	p.Data = slices.Clone(p.Data)
	return p
}

// Service is the catalog back office.
type Service struct {
	backend    Backend
	categories *optimistic.Cache[queryKey, cms.Page[cms.CategoryItem]]
	purposes   *optimistic.Cache[queryKey, cms.Page[cms.PurposeItem]]
	grouped    *optimistic.Cache[queryKey, cms.Page[cms.GroupedFiduciary]]
	logger     *slog.Logger
	metrics    Metrics
	auditor    AuditRecorder
	cacheOpts  []optimistic.Option
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditor(a AuditRecorder) Option {
	return func(s *Service) { s.auditor = a }
}

// WithListingCache tunes the size bound and stale window of every listing
// cache. Listings default to a five second stale window.
func WithListingCache(opts ...optimistic.Option) Option {
	return func(s *Service) { s.cacheOpts = append(s.cacheOpts, opts...) }
}

func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.categories = optimistic.New[queryKey](clonePage[cms.CategoryItem], s.cacheOpts...)
	s.purposes = optimistic.New[queryKey](clonePage[cms.PurposeItem], s.cacheOpts...)
	s.grouped = optimistic.New[queryKey](clonePage[cms.GroupedFiduciary], s.cacheOpts...)
	return s
}

// -----------------------------------------------------------------------------
// Categories
// -----------------------------------------------------------------------------

// ListCategories returns the cached listing for the query, fetching on a miss.
func (s *Service) ListCategories(ctx context.Context, df string, q cms.ListQuery) (cms.Page[cms.CategoryItem], error) {
	if err := requireFiduciary(df); err != nil {
		return cms.Page[cms.CategoryItem]{}, err
	}
	key := newKey(resourceCategories, df, "", q)
	if page, ok := s.categories.Get(key); ok {
		return page, nil
	}
	page, err := s.backend.ListCategories(ctx, df, q)
	if err != nil {
		return cms.Page[cms.CategoryItem]{}, err
	}
	s.categories.Put(key, *page)
	return clonePage(*page), nil
}

// CreateCategory shows a temporary item at the top of every listing of the
// fiduciary until the backend answers.
func (s *Service) CreateCategory(ctx context.Context, df string, p cms.CategoryPayload) (*cms.CategoryItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category name is required")
	}
	temp := cms.CategoryItem{
		PurposeCategoryID: TempIDPrefix + uuid.NewString(),
		DataFiduciaryID:   df,
		Name:              p.Name,
		Description:       p.Description,
		IsActive:          true,
	}

	var created *cms.CategoryItem
	err := s.categories.Mutate(ctx, s.matchCategories(df),
		func(_ queryKey, page cms.Page[cms.CategoryItem]) cms.Page[cms.CategoryItem] {
			page.Data = slices.Insert(page.Data, 0, temp)
			return page
		},
		func(ctx context.Context) (err error) {
			created, err = s.backend.CreateCategory(ctx, df, p)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourceCategories, "create", err)
	}
	s.changed(ctx, df, "category.create", created.PurposeCategoryID)
	return created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, df, categoryID string, p cms.CategoryPayload) (*cms.CategoryItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "category name is required")
	}

	var updated *cms.CategoryItem
	err := s.categories.Mutate(ctx, s.matchCategories(df),
		patchItems(func(c *cms.CategoryItem) bool {
			if c.PurposeCategoryID != categoryID {
				return false
			}
			c.Name, c.Description = p.Name, p.Description
			return true
		}),
		func(ctx context.Context) (err error) {
			updated, err = s.backend.UpdateCategory(ctx, df, categoryID, p)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourceCategories, "update", err)
	}
	s.changed(ctx, df, "category.update", categoryID)
	return updated, nil
}

// ToggleCategory flips is_active.
func (s *Service) ToggleCategory(ctx context.Context, df, categoryID string) (*cms.CategoryItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	var toggled *cms.CategoryItem
	err := s.categories.Mutate(ctx, s.matchCategories(df),
		patchItems(func(c *cms.CategoryItem) bool {
			if c.PurposeCategoryID != categoryID {
				return false
			}
			c.IsActive = !c.IsActive
			return true
		}),
		func(ctx context.Context) (err error) {
			toggled, err = s.backend.ToggleCategory(ctx, df, categoryID)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourceCategories, "toggle", err)
	}
	s.changed(ctx, df, "category.toggle", categoryID)
	return toggled, nil
}

func (s *Service) DeleteCategory(ctx context.Context, df, categoryID string) error {
	if err := requireFiduciary(df); err != nil {
		return err
	}
	err := s.categories.Mutate(ctx, s.matchCategories(df),
		func(_ queryKey, page cms.Page[cms.CategoryItem]) cms.Page[cms.CategoryItem] {
			page.Data = slices.DeleteFunc(page.Data, func(c cms.CategoryItem) bool {
				return c.PurposeCategoryID == categoryID
			})
			return page
		},
		func(ctx context.Context) error {
			return s.backend.DeleteCategory(ctx, df, categoryID)
		})
	if err != nil {
		return s.rolledBack(ctx, resourceCategories, "delete", err)
	}
	// purpose listings embed the category; drop them too
	s.purposes.Invalidate(func(k queryKey) bool { return k.df == df })
	s.changed(ctx, df, "category.delete", categoryID)
	return nil
}

// -----------------------------------------------------------------------------
// Purposes
// -----------------------------------------------------------------------------

// ListPurposes lists the purposes of one category.
func (s *Service) ListPurposes(ctx context.Context, df, categoryID string, q cms.ListQuery) (cms.Page[cms.PurposeItem], error) {
	if err := requireFiduciary(df); err != nil {
		return cms.Page[cms.PurposeItem]{}, err
	}
	if categoryID == "" {
		return cms.Page[cms.PurposeItem]{}, dErrors.New(dErrors.CodeInvalidInput, "category id is required")
	}
	key := newKey(resourcePurposes, df, categoryID, q)
	if page, ok := s.purposes.Get(key); ok {
		return page, nil
	}
	page, err := s.backend.ListPurposes(ctx, df, categoryID, q)
	if err != nil {
		return cms.Page[cms.PurposeItem]{}, err
	}
	s.purposes.Put(key, *page)
	return clonePage(*page), nil
}

func (s *Service) CreatePurpose(ctx context.Context, df string, p cms.PurposePayload) (*cms.PurposeItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	if err := validatePurpose(&p); err != nil {
		return nil, err
	}
	temp := cms.PurposeItem{
		PurposeID:            TempIDPrefix + uuid.NewString(),
		DataFiduciaryID:      df,
		PurposeCategoryID:    p.PurposeCategoryID,
		Title:                p.Title,
		Description:          p.Description,
		LegalBasis:           p.LegalBasis,
		DataFields:           slices.Clone(p.DataFields),
		ProcessingActivities: slices.Clone(p.ProcessingActivities),
		RetentionPeriodDays:  p.RetentionPeriodDays,
		IsMandatory:          p.IsMandatory,
		IsActive:             true,
		RequiresRenewal:      p.RequiresRenewal,
		RenewalPeriodDays:    p.RenewalPeriodDays,
		DisplayOrder:         p.DisplayOrder,
	}

	var created *cms.PurposeItem
	err := s.purposes.Mutate(ctx, s.matchPurposes(df, p.PurposeCategoryID),
		func(_ queryKey, page cms.Page[cms.PurposeItem]) cms.Page[cms.PurposeItem] {
			page.Data = slices.Insert(page.Data, 0, temp)
			return page
		},
		func(ctx context.Context) (err error) {
			created, err = s.backend.CreatePurpose(ctx, df, p)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourcePurposes, "create", err)
	}
	s.countsChanged(df)
	s.changed(ctx, df, "purpose.create", created.PurposeID)
	return created, nil
}

func (s *Service) UpdatePurpose(ctx context.Context, df, purposeID string, p cms.PurposePayload) (*cms.PurposeItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	if err := validatePurpose(&p); err != nil {
		return nil, err
	}
	var updated *cms.PurposeItem
	err := s.purposes.Mutate(ctx, s.matchPurposes(df, ""),
		patchItems(func(item *cms.PurposeItem) bool {
			if item.PurposeID != purposeID {
				return false
			}
			item.PurposeCategoryID = p.PurposeCategoryID
			item.Title = p.Title
			item.Description = p.Description
			item.LegalBasis = p.LegalBasis
			item.DataFields = slices.Clone(p.DataFields)
			item.ProcessingActivities = slices.Clone(p.ProcessingActivities)
			item.RetentionPeriodDays = p.RetentionPeriodDays
			item.IsMandatory = p.IsMandatory
			item.RequiresRenewal = p.RequiresRenewal
			item.RenewalPeriodDays = p.RenewalPeriodDays
			return true
		}),
		func(ctx context.Context) (err error) {
			updated, err = s.backend.UpdatePurpose(ctx, df, purposeID, p)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourcePurposes, "update", err)
	}
	s.countsChanged(df)
	s.changed(ctx, df, "purpose.update", purposeID)
	return updated, nil
}

func (s *Service) TogglePurpose(ctx context.Context, df, purposeID string) (*cms.PurposeItem, error) {
	if err := requireFiduciary(df); err != nil {
		return nil, err
	}
	var toggled *cms.PurposeItem
	err := s.purposes.Mutate(ctx, s.matchPurposes(df, ""),
		patchItems(func(item *cms.PurposeItem) bool {
			if item.PurposeID != purposeID {
				return false
			}
			item.IsActive = !item.IsActive
			return true
		}),
		func(ctx context.Context) (err error) {
			toggled, err = s.backend.TogglePurpose(ctx, df, purposeID)
			return err
		})
	if err != nil {
		return nil, s.rolledBack(ctx, resourcePurposes, "toggle", err)
	}
	s.changed(ctx, df, "purpose.toggle", purposeID)
	return toggled, nil
}

func (s *Service) DeletePurpose(ctx context.Context, df, purposeID string) error {
	if err := requireFiduciary(df); err != nil {
		return err
	}
	err := s.purposes.Mutate(ctx, s.matchPurposes(df, ""),
		func(_ queryKey, page cms.Page[cms.PurposeItem]) cms.Page[cms.PurposeItem] {
			page.Data = slices.DeleteFunc(page.Data, func(p cms.PurposeItem) bool {
				return p.PurposeID == purposeID
			})
			return page
		},
		func(ctx context.Context) error {
			return s.backend.DeletePurpose(ctx, df, purposeID)
		})
	if err != nil {
		return s.rolledBack(ctx, resourcePurposes, "delete", err)
	}
	s.countsChanged(df)
	s.changed(ctx, df, "purpose.delete", purposeID)
	return nil
}

// -----------------------------------------------------------------------------
// System admin (read-only)
// -----------------------------------------------------------------------------

// ListGroupedCategories lists fiduciaries with their category counts.
func (s *Service) ListGroupedCategories(ctx context.Context, q cms.ListQuery) (cms.Page[cms.GroupedFiduciary], error) {
	key := newKey(resourceGrouped, "", "", q)
	if page, ok := s.grouped.Get(key); ok {
		return page, nil
	}
	page, err := s.backend.ListGroupedCategories(ctx, q)
	if err != nil {
		return cms.Page[cms.GroupedFiduciary]{}, err
	}
	s.grouped.Put(key, *page)
	return clonePage(*page), nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Service) matchCategories(df string) func(queryKey) bool {
	return func(k queryKey) bool { return k.df == df }
}

// matchPurposes selects the fiduciary's purpose listings, narrowed to one
// category when categoryID is set.
func (s *Service) matchPurposes(df, categoryID string) func(queryKey) bool {
	return func(k queryKey) bool {
		return k.df == df && (categoryID == "" || k.categoryID == categoryID)
	}
}

// countsChanged drops listings whose purpose totals went stale.
func (s *Service) countsChanged(df string) {
	s.categories.Invalidate(func(k queryKey) bool { return k.df == df })
	s.grouped.Invalidate(func(queryKey) bool { return true })
}

// patchItems runs fn over every item of a page. fn returns false for items it
// leaves alone.
func patchItems[T any](fn func(*T) bool) func(queryKey, cms.Page[T]) cms.Page[T] {
	return func(_ queryKey, page cms.Page[T]) cms.Page[T] {
		for i := range page.Data {
			fn(&page.Data[i])
		}
		return page
	}
}

func (s *Service) rolledBack(ctx context.Context, resource, action string, err error) error {
	if s.metrics != nil {
		s.metrics.IncrementOptimisticRollbacks(resource)
	}
	s.logger.WarnContext(ctx, "catalog change rejected, local listings restored",
		"resource", resource,
		"action", action,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return err
}

func (s *Service) changed(ctx context.Context, df, detail, id string) {
	if s.auditor == nil {
		return
	}
	var userID string
	if p, ok := requestcontext.PrincipalFrom(ctx); ok {
		userID = p.UserID
	}
	s.auditor.Record(ctx, audit.Event{
		Type:            audit.EventCatalogChanged,
		UserID:          userID,
		DataFiduciaryID: df,
		ReferenceID:     id,
		Detail:          detail,
	})
}

func requireFiduciary(df string) error {
	if df == "" {
		return dErrors.New(dErrors.CodeForbidden, "no data fiduciary bound to this account")
	}
	return nil
}

func validatePurpose(p *cms.PurposePayload) error {
	p.Title = strings.TrimSpace(p.Title)
	switch {
	case p.Title == "":
		return dErrors.New(dErrors.CodeInvalidInput, "purpose title is required")
	case p.PurposeCategoryID == "":
		return dErrors.New(dErrors.CodeInvalidInput, "purpose category is required")
	case p.RetentionPeriodDays < 0:
		return dErrors.New(dErrors.CodeInvalidInput, "retention period cannot be negative")
	case p.RequiresRenewal && (p.RenewalPeriodDays == nil || *p.RenewalPeriodDays <= 0):
		return dErrors.New(dErrors.CodeInvalidInput, "renewal period is required when renewal is enabled")
	}
	return nil
}
