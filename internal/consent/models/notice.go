package models

import (
	"time"

	"cmsportal/internal/cms"
)

// ImplicitCategoryID groups purposes that arrive without a category.
const ImplicitCategoryID = "uncategorized"

const implicitCategoryName = "Purposes"

// Purpose is one declared processing purpose as shown on a notice.
type Purpose struct {
	ID                   string   `json:"purpose_id"`
	VersionID            string   `json:"purpose_version_id"`
	VersionNumber        int      `json:"version_number"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	LegalBasis           string   `json:"legal_basis"`
	DataFields           []string `json:"data_fields"`
	ProcessingActivities []string `json:"processing_activities"`
	RetentionDays        int      `json:"retention_period_days"`
	Mandatory            bool     `json:"is_mandatory"`
	CategoryID           string   `json:"category_id"`
}

// Category is a named, ordered group of purposes. It has no retention of its
// own; see MaxRetentionDays.
type Category struct {
	ID       string    `json:"category_id"`
	Name     string    `json:"category_name"`
	Purposes []Purpose `json:"purposes"`
}

// MaxRetentionDays is the longest retention period among member purposes.
func (c Category) MaxRetentionDays() int {
	maxDays := 0
	for _, p := range c.Purposes {
		maxDays = max(maxDays, p.RetentionDays)
	}
	return maxDays
}

// HasOptional reports whether the category contains any purpose the user can
// decline.
func (c Category) HasOptional() bool {
	for _, p := range c.Purposes {
		if !p.Mandatory {
			return true
		}
	}
	return false
}

type Fiduciary struct {
	ID               string `json:"data_fiduciary_id"`
	Name             string `json:"name"`
	LegalName        string `json:"legal_name"`
	LogoURL          string `json:"logo_url"`
	ContactEmail     string `json:"contact_email"`
	WebsiteURL       string `json:"website_url"`
	PrivacyPolicyURL string `json:"privacy_policy_url"`
}

// Notice is the canonical, category-grouped view of a consent notice. Both
// backend shapes are folded into Categories when the notice is loaded.
type Notice struct {
	ReferenceID       string     `json:"cms_request_id"`
	Fiduciary         Fiduciary  `json:"data_fiduciary"`
	Categories        []Category `json:"categories"`
	Grouped           bool       `json:"grouped"`
	DataFields        []string   `json:"data_fields,omitempty"`
	RetentionDays     int        `json:"retention_period_days"`
	WithdrawalPolicy  string     `json:"withdrawal_policy"`
	LanguageCode      string     `json:"language_code"`
	RedirectURL       string     `json:"redirect_url,omitempty"`
	ValidUntil        time.Time  `json:"valid_until,omitzero"`
	MandatoryPurposes []string   `json:"mandatory_purposes,omitempty"`
}

// IsExpired reports whether the notice's validity deadline has passed. A
// notice without a deadline never expires client-side.
func (n Notice) IsExpired(now time.Time) bool {
	return !n.ValidUntil.IsZero() && now.After(n.ValidUntil)
}

// Category returns the category with id.
func (n Notice) Category(id string) (Category, bool) {
	for _, c := range n.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Purpose returns the purpose with id.
func (n Notice) Purpose(id string) (Purpose, bool) {
	for _, c := range n.Categories {
		for _, p := range c.Purposes {
			if p.ID == id {
				return p, true
			}
		}
	}
	return Purpose{}, false
}

// NoticeFromCMS canonicalizes a backend notice. purposes_by_category wins when
// non-empty; otherwise the flat list is grouped by each purpose's category
// reference, with unreferenced purposes in one implicit category.
func NoticeFromCMS(w *cms.Notice) Notice {
	n := Notice{
		ReferenceID: w.CMSRequestID,
		Fiduciary: Fiduciary{
			ID:               w.DataFiduciary.DataFiduciaryID,
			Name:             w.DataFiduciary.Name,
			LegalName:        w.DataFiduciary.LegalName,
			LogoURL:          w.DataFiduciary.LogoURL,
			ContactEmail:     w.DataFiduciary.ContactEmail,
			WebsiteURL:       w.DataFiduciary.WebsiteURL,
			PrivacyPolicyURL: w.DataFiduciary.PrivacyPolicyURL,
		},
		DataFields:        w.DataFields,
		RetentionDays:     w.RetentionPolicy.RetentionPeriodDays,
		WithdrawalPolicy:  w.RetentionPolicy.WithdrawalPolicy,
		LanguageCode:      w.LanguageConfig.LanguageCode,
		RedirectURL:       w.RedirectURL,
		MandatoryPurposes: w.MandatoryPurposes,
	}
	if t, ok := ParseTime(w.ValidUntil); ok {
		n.ValidUntil = t
	}

	if len(w.PurposesByCategory) > 0 {
		n.Grouped = true
		for _, g := range w.PurposesByCategory {
			c := Category{ID: g.CategoryID, Name: g.CategoryName}
			for _, p := range g.Purposes {
				c.Purposes = append(c.Purposes, purposeFromCMS(p, g.CategoryID))
			}
			n.Categories = append(n.Categories, c)
		}
		return n
	}

	index := make(map[string]int)
	for _, p := range w.Purposes {
		id, name := ImplicitCategoryID, implicitCategoryName
		if p.Category != nil && p.Category.PurposeCategoryID != "" {
			id, name = p.Category.PurposeCategoryID, p.Category.Name
		}
		i, ok := index[id]
		if !ok {
			i = len(n.Categories)
			index[id] = i
			n.Categories = append(n.Categories, Category{ID: id, Name: name})
		}
		n.Categories[i].Purposes = append(n.Categories[i].Purposes, purposeFromCMS(p, id))
	}
	return n
}

func purposeFromCMS(p cms.NoticePurpose, categoryID string) Purpose {
	return Purpose{
		ID:                   p.PurposeID,
		VersionID:            p.PurposeVersionID,
		VersionNumber:        p.VersionNumber,
		Title:                p.Title,
		Description:          p.Description,
		LegalBasis:           p.LegalBasis,
		DataFields:           p.DataFields,
		ProcessingActivities: p.ProcessingActivities,
		RetentionDays:        p.RetentionPeriodDays,
		Mandatory:            p.IsMandatory,
		CategoryID:           categoryID,
	}
}

// ParseTime parses the backend's ISO-8601 timestamps.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
