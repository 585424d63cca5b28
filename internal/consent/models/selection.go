package models

import (
	dErrors "cmsportal/pkg/domain-errors"
)

// Selection holds the two coupled sets of one notice interaction: explicitly
// selected purposes and selected categories. Mandatory purposes are implied and
// never enter the explicit set.
//
// After every mutation a category is selected iff each of its purposes is
// mandatory or explicitly selected. Categories without optional purposes are
// therefore always selected and cannot be toggled.
//
// Selection is not safe for concurrent use.
type Selection struct {
	notice     *Notice
	purposes   map[string]struct{}
	categories map[string]struct{}
}

// NewSelection starts an empty selection for n.
func NewSelection(n *Notice) *Selection {
	s := &Selection{
		notice:     n,
		purposes:   make(map[string]struct{}),
		categories: make(map[string]struct{}),
	}
	for _, c := range n.Categories {
		if !c.HasOptional() {
			s.categories[c.ID] = struct{}{}
		}
	}
	return s
}

// ToggleCategory deselects the category and all its optional purposes when it
// is selected, otherwise selects it and all its optional purposes.
func (s *Selection) ToggleCategory(categoryID string) error {
	c, ok := s.notice.Category(categoryID)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "category is not part of this notice")
	}
	if !c.HasOptional() {
		return nil
	}

	if _, selected := s.categories[c.ID]; selected {
		delete(s.categories, c.ID)
		for _, p := range c.Purposes {
			delete(s.purposes, p.ID)
		}
		return nil
	}

	s.categories[c.ID] = struct{}{}
	for _, p := range c.Purposes {
		if !p.Mandatory {
			s.purposes[p.ID] = struct{}{}
		}
	}
	return nil
}

// TogglePurpose is a no-op for mandatory purposes. Deselecting a purpose also
// deselects its category; selecting one reselects the category once every
// member is mandatory or selected.
func (s *Selection) TogglePurpose(purposeID string) error {
	p, ok := s.notice.Purpose(purposeID)
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "purpose is not part of this notice")
	}
	if p.Mandatory {
		return nil
	}

	if _, selected := s.purposes[p.ID]; selected {
		delete(s.purposes, p.ID)
		delete(s.categories, p.CategoryID)
		return nil
	}

	s.purposes[p.ID] = struct{}{}
	if c, ok := s.notice.Category(p.CategoryID); ok && s.covers(c) {
		s.categories[c.ID] = struct{}{}
	}
	return nil
}

func (s *Selection) covers(c Category) bool {
	for _, p := range c.Purposes {
		if _, selected := s.purposes[p.ID]; !selected && !p.Mandatory {
			return false
		}
	}
	return true
}

// IsCategorySelected reports the category-selection set membership.
func (s *Selection) IsCategorySelected(categoryID string) bool {
	_, ok := s.categories[categoryID]
	return ok
}

// IsPurposeSelected reports whether a purpose shows as selected. Mandatory
// purposes always do.
func (s *Selection) IsPurposeSelected(purposeID string) bool {
	if _, ok := s.purposes[purposeID]; ok {
		return true
	}
	p, ok := s.notice.Purpose(purposeID)
	return ok && p.Mandatory
}

// IsExplicitlySelected reports whether the user chose the purpose.
func (s *Selection) IsExplicitlySelected(purposeID string) bool {
	_, ok := s.purposes[purposeID]
	return ok
}

// SelectedPurposeIDs returns the explicit selections in notice order. This is
// what gets submitted; the backend unions in mandatory purposes.
func (s *Selection) SelectedPurposeIDs() []string {
	ids := make([]string, 0, len(s.purposes))
	for _, c := range s.notice.Categories {
		for _, p := range c.Purposes {
			if _, ok := s.purposes[p.ID]; ok {
				ids = append(ids, p.ID)
			}
		}
	}
	return ids
}

// SelectedCategoryIDs returns selected categories in notice order.
func (s *Selection) SelectedCategoryIDs() []string {
	ids := make([]string, 0, len(s.categories))
	for _, c := range s.notice.Categories {
		if _, ok := s.categories[c.ID]; ok {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// CanSubmit is the submission gate: explicit agreement and at least one
// explicitly selected purpose.
func (s *Selection) CanSubmit(agree bool) bool {
	return agree && len(s.purposes) > 0
}
