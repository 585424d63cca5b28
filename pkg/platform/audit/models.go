package audit

import (
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal or regulatory significance:
	// consent grants, withdrawals and renewals.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for operational
	// visibility, such as initiations and catalog edits.
	CategoryOperations EventCategory = "operations"
)

type EventType string

const (
	EventConsentInitiated        EventType = "consent_initiated"
	EventConsentGranted          EventType = "consent_granted"
	EventConsentWithdrawn        EventType = "consent_withdrawn"
	EventConsentRenewalRequested EventType = "consent_renewal_requested"
	EventCatalogChanged          EventType = "catalog_changed"
)

var eventCategories = map[EventType]EventCategory{
	EventConsentGranted:          CategoryCompliance,
	EventConsentWithdrawn:        CategoryCompliance,
	EventConsentRenewalRequested: CategoryCompliance,

	EventConsentInitiated: CategoryOperations,
	EventCatalogChanged:   CategoryOperations,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (e EventType) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted after the consent service has accepted a command. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID              string
	Type            EventType
	Timestamp       time.Time
	UserID          string // external user id, or the admin for catalog events
	DataFiduciaryID string
	ReferenceID     string // cms_request_id
	ArtifactID      string
	PurposeIDs      []string
	Status          string
	Detail          string
	Device          string // condensed user agent
	ClientIP        string
	RequestID       string
}
