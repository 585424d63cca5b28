package lifecycle

import (
	"strings"
	"time"

	"cmsportal/internal/consent/models"
)

const (
	StatusActive  = "ACTIVE"
	StatusExpired = "EXPIRED"
	StatusRevoked = "REVOKED"
)

// StatusBadge is the label shown for a server status. Unknown statuses are
// shown as sent.
func StatusBadge(status string) string {
	switch strings.ToUpper(status) {
	case StatusActive:
		return "Active"
	case StatusExpired:
		return "Expired"
	case StatusRevoked:
		return "Revoked"
	default:
		return status
	}
}

// DisplayExpired compares expires_at with now. It is independent of the
// server status and the two may disagree. An unparsable or missing expiry is
// never display-expired.
func DisplayExpired(expiresAt string, now time.Time) bool {
	t, ok := models.ParseTime(expiresAt)
	return ok && now.After(t)
}

// CanWithdrawOrRenew reports whether either action may be offered.
func CanWithdrawOrRenew(status string, deleted bool) bool {
	if deleted {
		return false
	}
	switch strings.ToUpper(status) {
	case StatusActive, StatusExpired:
		return true
	default:
		return false
	}
}
