package cms

// Wire types for the consent-management REST API. Timestamps stay as the
// backend's ISO-8601 strings; consumers parse what they compare.

// ActivePurpose is one entry of the active-purposes listing.
type ActivePurpose struct {
	PurposeID   string `json:"purpose_id"`
	Title       string `json:"title,omitempty"`
	IsMandatory bool   `json:"is_mandatory,omitempty"`
}

type InitiateConsentRequest struct {
	DataFiduciaryID string         `json:"data_fiduciary_id"`
	UserID          string         `json:"user_id"`
	Purposes        []string       `json:"purposes"`
	Duration        int            `json:"duration"`
	Language        string         `json:"language"`
	Metadata        map[string]any `json:"metadata"`
	RedirectURL     string         `json:"redirect_url,omitempty"`
	Email           string         `json:"email,omitempty"`
	Phone           string         `json:"phone,omitempty"`
}

type InitiateConsentResponse struct {
	CMSRequestID string `json:"cms_request_id"`
	NoticeURL    string `json:"notice_url"`
	Status       string `json:"status"`
	ExpiresAt    string `json:"expires_at"`
}

type CategoryRef struct {
	PurposeCategoryID string `json:"purpose_category_id"`
	Name              string `json:"name"`
}

type NoticePurpose struct {
	PurposeID            string       `json:"purpose_id"`
	PurposeVersionID     string       `json:"purpose_version_id"`
	VersionNumber        int          `json:"version_number"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	LegalBasis           string       `json:"legal_basis"`
	DataFields           []string     `json:"data_fields"`
	ProcessingActivities []string     `json:"processing_activities"`
	RetentionPeriodDays  int          `json:"retention_period_days"`
	IsMandatory          bool         `json:"is_mandatory"`
	Category             *CategoryRef `json:"category,omitempty"`
}

type DataFiduciary struct {
	DataFiduciaryID  string `json:"data_fiduciary_id"`
	Name             string `json:"name"`
	LegalName        string `json:"legal_name"`
	LogoURL          string `json:"logo_url"`
	ContactEmail     string `json:"contact_email"`
	WebsiteURL       string `json:"website_url"`
	PrivacyPolicyURL string `json:"privacy_policy_url"`
}

type RetentionPolicy struct {
	RetentionPeriodDays int    `json:"retention_period_days"`
	WithdrawalPolicy    string `json:"withdrawal_policy"`
}

type LanguageConfig struct {
	LanguageCode string         `json:"language_code"`
	Translations map[string]any `json:"translations,omitempty"`
}

type CategoryGroup struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Purposes     []NoticePurpose `json:"purposes"`
}

// Notice is the payload of GET consents/{cms_request_id}. Either
// PurposesByCategory or the legacy flat Purposes list is populated.
type Notice struct {
	CMSRequestID       string          `json:"cms_request_id"`
	DataFiduciary      DataFiduciary   `json:"data_fiduciary"`
	Purposes           []NoticePurpose `json:"purposes,omitempty"`
	PurposesByCategory []CategoryGroup `json:"purposes_by_category,omitempty"`
	DataFields         []string        `json:"data_fields,omitempty"`
	RetentionPolicy    RetentionPolicy `json:"retention_policy"`
	LanguageConfig     LanguageConfig  `json:"language_config"`
	ValidUntil         string          `json:"valid_until,omitempty"`
	MandatoryPurposes  []string        `json:"mandatory_purposes,omitempty"`
	RedirectURL        string          `json:"redirect_url,omitempty"`
}

type SubmitConsentRequest struct {
	CMSRequestID     string   `json:"cms_request_id"`
	SelectedPurposes []string `json:"selected_purposes"`
	Agree            bool     `json:"agree"`
	LanguageCode     string   `json:"language_code"`
	IPAddress        string   `json:"ip_address,omitempty"`
	UserAgent        string   `json:"user_agent,omitempty"`
}

type GrantedPurpose struct {
	PurposeID        string `json:"purpose_id"`
	PurposeVersionID string `json:"purpose_version_id"`
	Title            string `json:"title"`
	GrantedAt        string `json:"granted_at"`
}

type RedirectParams struct {
	ConsentID string `json:"consent_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type SubmitConsentResponse struct {
	ArtifactID     string           `json:"artifact_id"`
	Status         string           `json:"status"`
	ValidTill      string           `json:"valid_till,omitempty"`
	Purposes       []GrantedPurpose `json:"purposes"`
	Hash           string           `json:"hash,omitempty"`
	RedirectURL    string           `json:"redirect_url,omitempty"`
	RedirectParams *RedirectParams  `json:"redirect_params,omitempty"`
}

type Artifact struct {
	ConsentArtifactID       string           `json:"consent_artifact_id"`
	DataFiduciaryID         string           `json:"data_fiduciary_id"`
	DataPrincipalID         string           `json:"data_principal_id"`
	PrincipalFiduciaryMapID string           `json:"principal_fiduciary_map_id"`
	ExternalUserID          string           `json:"external_user_id"`
	Status                  string           `json:"status"`
	Purposes                []GrantedPurpose `json:"purposes"`
	RequestedAt             string           `json:"requested_at"`
	GrantedAt               string           `json:"granted_at"`
	ExpiresAt               string           `json:"expires_at"`
	ConsentTextHash         *string          `json:"consent_text_hash"`
	Metadata                map[string]any   `json:"metadata"`
	IsDeleted               bool             `json:"is_deleted"`
}

type Pagination struct {
	Total       int `json:"total"`
	Limit       int `json:"limit"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

type UserConsents struct {
	Data []Artifact `json:"data"`
	Meta struct {
		Pagination Pagination `json:"pagination"`
	} `json:"meta"`
}

type WithdrawConsentResponse struct {
	ConsentArtifactID string `json:"consent_artifact_id"`
	Status            string `json:"status"`
	WithdrawnAt       string `json:"withdrawn_at"`
}

type RenewConsentRequest struct {
	ArtifactID         string `json:"artifact_id"`
	RequestedExtension string `json:"requested_extension"`
	InitiatedBy        string `json:"initiated_by"`
}

type TransparencyInfo struct {
	RetentionPolicyChanges string `json:"retention_policy_changes,omitempty"`
	PurposeChanges         string `json:"purpose_changes,omitempty"`
	DataFieldChanges       string `json:"data_field_changes,omitempty"`
	OtherChanges           string `json:"other_changes,omitempty"`
}

// IsEmpty reports whether the backend reported no transparency-relevant change.
func (t TransparencyInfo) IsEmpty() bool {
	return t.RetentionPolicyChanges == "" && t.PurposeChanges == "" &&
		t.DataFieldChanges == "" && t.OtherChanges == ""
}

type RenewConsentResponse struct {
	RenewalRequestID   string           `json:"renewal_request_id"`
	ArtifactID         string           `json:"artifact_id"`
	Status             string           `json:"status"`
	CurrentExpiresAt   string           `json:"current_expires_at"`
	RequestedExpiresAt string           `json:"requested_expires_at"`
	TransparencyInfo   TransparencyInfo `json:"transparency_info"`
	Message            string           `json:"message,omitempty"`
}

// Back-office catalog.

type CategoryItem struct {
	PurposeCategoryID string `json:"purpose_category_id"`
	DataFiduciaryID   string `json:"data_fiduciary_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	DisplayOrder      int    `json:"display_order"`
	IsActive          bool   `json:"is_active"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	TotalPurposes     int    `json:"total_purposes"`
}

type CategoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PurposeItem struct {
	PurposeID            string       `json:"purpose_id"`
	DataFiduciaryID      string       `json:"data_fiduciary_id"`
	PurposeCategoryID    string       `json:"purpose_category_id"`
	Title                string       `json:"title"`
	Description          string       `json:"description"`
	LegalBasis           string       `json:"legal_basis"`
	DataFields           []string     `json:"data_fields"`
	ProcessingActivities []string     `json:"processing_activities"`
	RetentionPeriodDays  int          `json:"retention_period_days"`
	IsMandatory          bool         `json:"is_mandatory"`
	IsActive             bool         `json:"is_active"`
	RequiresRenewal      bool         `json:"requires_renewal"`
	RenewalPeriodDays    *int         `json:"renewal_period_days"`
	DisplayOrder         int          `json:"display_order"`
	CreatedAt            string       `json:"created_at"`
	UpdatedAt            string       `json:"updated_at"`
	Category             *CategoryRef `json:"category,omitempty"`
	TotalVersions        int          `json:"total_versions"`
	TotalTranslations    int          `json:"total_translations"`
}

type PurposePayload struct {
	PurposeCategoryID    string   `json:"purpose_category_id"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	LegalBasis           string   `json:"legal_basis"`
	DataFields           []string `json:"data_fields"`
	ProcessingActivities []string `json:"processing_activities"`
	RetentionPeriodDays  int      `json:"retention_period_days"`
	IsMandatory          bool     `json:"is_mandatory"`
	RequiresRenewal      bool     `json:"requires_renewal"`
	RenewalPeriodDays    *int     `json:"renewal_period_days"`
	DisplayOrder         int      `json:"display_order,omitempty"`
}

type CatalogPagination struct {
	TotalCategories int `json:"total_categories,omitempty"`
	TotalPurposes   int `json:"total_purposes,omitempty"`
	Limit           int `json:"limit"`
	CurrentPage     int `json:"current_page"`
	TotalPages      int `json:"total_pages"`
}

// Page is the list envelope used by every back-office listing.
type Page[T any] struct {
	Data []T `json:"data"`
	Meta struct {
		Pagination CatalogPagination `json:"pagination"`
	} `json:"meta"`
}

type GroupedFiduciary struct {
	DataFiduciaryID   string `json:"data_fiduciary_id"`
	DataFiduciaryName string `json:"data_fiduciary_name"`
	TotalCategories   int    `json:"total_categories"`
}

// ListQuery carries the paging, search, filter and sort knobs of the catalog
// listings.
type ListQuery struct {
	Page      int
	Limit     int
	Q         string
	IsActive  *bool
	SortBy    string
	SortOrder string
}
