package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmsportal/internal/cms"
)

func TestNoticeFromCMS(t *testing.T) {
	t.Run("grouped shape takes precedence", func(t *testing.T) {
		n := NoticeFromCMS(&cms.Notice{
			CMSRequestID: "req-1",
			Purposes:     []cms.NoticePurpose{{PurposeID: "ignored"}},
			PurposesByCategory: []cms.CategoryGroup{{
				CategoryID:   "K",
				CategoryName: "Marketing",
				Purposes: []cms.NoticePurpose{
					{PurposeID: "P1", IsMandatory: true, RetentionPeriodDays: 30},
					{PurposeID: "P2", RetentionPeriodDays: 400},
				},
			}},
		})

		assert.True(t, n.Grouped)
		require.Len(t, n.Categories, 1)
		assert.Equal(t, "K", n.Categories[0].ID)
		assert.Equal(t, "K", n.Categories[0].Purposes[1].CategoryID)
		assert.Equal(t, 400, n.Categories[0].MaxRetentionDays())
		_, ok := n.Purpose("ignored")
		assert.False(t, ok)
	})

	t.Run("flat list grouped by category reference", func(t *testing.T) {
		n := NoticeFromCMS(&cms.Notice{
			Purposes: []cms.NoticePurpose{
				{PurposeID: "p1", Category: &cms.CategoryRef{PurposeCategoryID: "c1", Name: "Analytics"}},
				{PurposeID: "p2"},
				{PurposeID: "p3", Category: &cms.CategoryRef{PurposeCategoryID: "c1", Name: "Analytics"}},
			},
		})

		assert.False(t, n.Grouped)
		require.Len(t, n.Categories, 2)
		assert.Equal(t, "c1", n.Categories[0].ID)
		assert.Len(t, n.Categories[0].Purposes, 2)
		assert.Equal(t, ImplicitCategoryID, n.Categories[1].ID)
		assert.Equal(t, ImplicitCategoryID, n.Categories[1].Purposes[0].CategoryID)
	})

	t.Run("flat list without references becomes one implicit category", func(t *testing.T) {
		n := NoticeFromCMS(&cms.Notice{
			Purposes: []cms.NoticePurpose{{PurposeID: "p1"}, {PurposeID: "p2"}},
		})
		require.Len(t, n.Categories, 1)
		assert.Equal(t, ImplicitCategoryID, n.Categories[0].ID)
		assert.Len(t, n.Categories[0].Purposes, 2)
	})

	t.Run("validity deadline", func(t *testing.T) {
		n := NoticeFromCMS(&cms.Notice{ValidUntil: "2026-03-01T10:00:00Z"})
		assert.False(t, n.IsExpired(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
		assert.True(t, n.IsExpired(time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)))

		assert.False(t, NoticeFromCMS(&cms.Notice{}).IsExpired(time.Now()))
	})
}

func TestParseTime(t *testing.T) {
	got, ok := ParseTime("2026-01-02T03:04:05.123Z")
	require.True(t, ok)
	assert.Equal(t, 2026, got.Year())

	_, ok = ParseTime("")
	assert.False(t, ok)
	_, ok = ParseTime("yesterday")
	assert.False(t, ok)
}
