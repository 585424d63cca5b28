// Package ratelimit throttles the write routes of the portal so a single
// device or address cannot flood the consent backend.
package ratelimit

import (
	"strings"
	"time"
)

// Class groups routes that share a budget.
type Class string

const (
	ClassInitiate   Class = "initiate"
	ClassSubmit     Class = "submit"
	ClassLifecycle  Class = "lifecycle"
	ClassAdminWrite Class = "admin_write"
)

// Policy is a sliding-window budget.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicies are generous enough for a person clicking through the
// screens and tight enough to stop scripted loops.
var DefaultPolicies = map[Class]Policy{
	ClassInitiate:   {Limit: 20, Window: time.Minute},
	ClassSubmit:     {Limit: 10, Window: time.Minute},
	ClassLifecycle:  {Limit: 30, Window: time.Minute},
	ClassAdminWrite: {Limit: 120, Window: time.Minute},
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}

// sanitizeKeySegment escapes the key delimiter so a crafted identifier cannot
// land in another bucket.
func sanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

func bucketKey(class Class, subject string) string {
	return string(class) + ":" + sanitizeKeySegment(subject)
}
