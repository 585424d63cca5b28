package testutil

import (
	"net/http"

	"cmsportal/pkg/requestcontext"
)

// DeviceCookieName mirrors the citizen device cookie set by middleware.
const DeviceCookieName = "cms_device"

// WithDevice attaches a device cookie so the request runs in that storage scope.
func WithDevice(req *http.Request, deviceID string) *http.Request {
	req.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: deviceID})
	return req
}

// WithPrincipal injects a back-office principal, bypassing token validation.
func WithPrincipal(req *http.Request, role, fiduciaryID string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{
		UserID:          "admin-1",
		Role:            role,
		DataFiduciaryID: fiduciaryID,
	})
	return req.WithContext(ctx)
}
