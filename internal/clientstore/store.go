// Package clientstore holds the small durable values the citizen flow keeps
// per device: the generated client user ID and the referrer it arrived from.
package clientstore

import (
	dErrors "cmsportal/pkg/domain-errors"
)

// Well-known keys.
const (
	KeyUserID   = "consent_user_id"
	KeyReferrer = "consent_referrer"
)

func validate(scope, key string) error {
	if scope == "" {
		return dErrors.New(dErrors.CodeBadRequest, "device scope is required")
	}
	if key == "" {
		return dErrors.New(dErrors.CodeBadRequest, "storage key is required")
	}
	return nil
}
