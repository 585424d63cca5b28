// Package device scopes durable client storage to a browser via a cookie.
package device

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"cmsportal/pkg/requestcontext"
)

// CookieName is the cookie that carries the device identifier.
const CookieName = "cms_device"

// Config controls how the device cookie is issued.
type Config struct {
	Secure bool
	MaxAge time.Duration
}

// Middleware reads the device cookie, issuing a new one when it is missing or
// malformed, and stores the identifier in the request context.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			deviceID := ""
			if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
				if _, err := uuid.Parse(c.Value); err == nil {
					deviceID = c.Value
				}
			}
			if deviceID == "" {
				deviceID = uuid.NewString()
				ctx = requestcontext.WithDeviceIssued(ctx)
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    deviceID,
					Path:     "/",
					MaxAge:   int(cfg.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx = requestcontext.WithDeviceID(ctx, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
