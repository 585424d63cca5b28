package notice

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"cmsportal/internal/consent/models"
	"cmsportal/internal/consent/submission"
	dErrors "cmsportal/pkg/domain-errors"
)

// translateConcurrency bounds parallel translation calls per view.
const translateConcurrency = 8

// Failure is the error view of a notice that could not be shown.
type Failure struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
	BackURL string       `json:"back_url"`
}

type PurposeView struct {
	models.Purpose
	Selected bool `json:"selected"`
	Explicit bool `json:"explicit"`
}

type CategoryView struct {
	ID               string        `json:"category_id"`
	Name             string        `json:"category_name"`
	MaxRetentionDays int           `json:"max_retention_days"`
	Selected         bool          `json:"selected"`
	Toggleable       bool          `json:"toggleable"`
	Purposes         []PurposeView `json:"purposes"`
}

// View is what the citizen UI renders for a notice session.
type View struct {
	ReferenceID         string              `json:"cms_request_id"`
	Phase               Phase               `json:"phase"`
	Fiduciary           *models.Fiduciary   `json:"data_fiduciary,omitempty"`
	Categories          []CategoryView      `json:"categories,omitempty"`
	DataFields          []string            `json:"data_fields,omitempty"`
	RetentionDays       int                 `json:"retention_period_days,omitempty"`
	WithdrawalPolicy    string              `json:"withdrawal_policy,omitempty"`
	LanguageCode        string              `json:"language_code,omitempty"`
	DisplayLanguage     string              `json:"display_language,omitempty"`
	ValidUntil          time.Time           `json:"valid_until,omitzero"`
	SelectedPurposeIDs  []string            `json:"selected_purposes"`
	SelectedCategoryIDs []string            `json:"selected_categories"`
	Agree               bool                `json:"agree"`
	CanSubmit           bool                `json:"can_submit"`
	Referrer            string              `json:"referrer,omitempty"`
	Error               *Failure            `json:"error,omitempty"`
	Outcome             *submission.Outcome `json:"outcome,omitempty"`
}

// view snapshots the session. Callers hold s.mu.
func (s *session) view(ref string) View {
	v := View{
		ReferenceID:         ref,
		Phase:               s.phase,
		Agree:               s.agree,
		Referrer:            s.referrer,
		Error:               s.failure,
		Outcome:             s.outcome,
		SelectedPurposeIDs:  []string{},
		SelectedCategoryIDs: []string{},
	}
	if s.notice == nil {
		return v
	}
	n := s.notice
	fid := n.Fiduciary
	v.Fiduciary = &fid
	v.DataFields = n.DataFields
	v.RetentionDays = n.RetentionDays
	v.WithdrawalPolicy = n.WithdrawalPolicy
	v.LanguageCode = n.LanguageCode
	v.ValidUntil = n.ValidUntil

	sel := s.selection
	if sel != nil {
		v.SelectedPurposeIDs = sel.SelectedPurposeIDs()
		v.SelectedCategoryIDs = sel.SelectedCategoryIDs()
		v.CanSubmit = s.phase == PhaseLoaded && sel.CanSubmit(s.agree)
	}
	for _, c := range n.Categories {
		cv := CategoryView{
			ID:               c.ID,
			Name:             c.Name,
			MaxRetentionDays: c.MaxRetentionDays(),
			Toggleable:       c.HasOptional(),
			Purposes:         make([]PurposeView, 0, len(c.Purposes)),
		}
		if sel != nil {
			cv.Selected = sel.IsCategorySelected(c.ID)
		}
		for _, p := range c.Purposes {
			pv := PurposeView{Purpose: p, Selected: p.Mandatory}
			if sel != nil {
				pv.Selected = sel.IsPurposeSelected(p.ID)
				pv.Explicit = sel.IsExplicitlySelected(p.ID)
			}
			cv.Purposes = append(cv.Purposes, pv)
		}
		v.Categories = append(v.Categories, cv)
	}
	if s.lang != "" && s.lang != n.LanguageCode {
		v.DisplayLanguage = s.lang
	}
	return v
}

// localize translates the display text of v into its display language. Every
// field falls back to its original text on its own.
func (e *Engine) localize(ctx context.Context, key sessionKey, v View) View {
	lang := v.DisplayLanguage
	if e.translator == nil || lang == "" {
		return v
	}
	prefix := key.slotPrefix()

	var g errgroup.Group
	g.SetLimit(translateConcurrency)
	translate := func(slot string, field *string) {
		if *field == "" {
			return
		}
		text := *field
		g.Go(func() error {
			*field = e.translator.Translate(ctx, prefix+slot, text, lang)
			return nil
		})
	}

	translate("withdrawal_policy", &v.WithdrawalPolicy)
	for i := range v.Categories {
		c := &v.Categories[i]
		translate("category/"+c.ID, &c.Name)
		for j := range c.Purposes {
			p := &c.Purposes[j]
			translate("purpose/"+p.ID+"/title", &p.Title)
			translate("purpose/"+p.ID+"/description", &p.Description)
		}
	}
	_ = g.Wait()
	return v
}
