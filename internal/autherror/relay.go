// Package autherror carries a sign-in failure message across the redirect
// back to the landing page inside a short-lived signed token, so no server
// state has to hold it.
package autherror

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	dErrors "cmsportal/pkg/domain-errors"
)

const (
	// DefaultTTL bounds how long a relayed message stays readable.
	DefaultTTL = 60 * time.Second
	// DefaultMessage is used when the identity provider gave no reason.
	DefaultMessage = "Authentication failed"

	issuer        = "cmsportal/auth-error"
	keyInfo       = "cmsportal auth error relay v1"
	maxMessageLen = 500
)

type claims struct {
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// Relay signs and verifies relayed messages.
type Relay struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type Option func(*Relay)

func WithTTL(ttl time.Duration) Option {
	return func(r *Relay) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Relay) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRelay derives its signing key from secret with HKDF so the relay never
// shares a key with the admin access tokens.
func NewRelay(secret string, opts ...Option) (*Relay, error) {
	if secret == "" {
		return nil, errors.New("auth error relay secret is required")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive relay key: %w", err)
	}
	r := &Relay{key: key, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Encode signs message. Blank messages become DefaultMessage and long ones
// are cut to a bounded length.
func (r *Relay) Encode(message string) (string, error) {
	message = normalize(message)
	now := r.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Message: message,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(r.ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(r.key)
}

// Decode returns the relayed message. Expired tokens fail with CodeExpired,
// anything else unreadable with CodeBadRequest.
func (r *Relay) Decode(token string) (string, error) {
	if token == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "token is required")
	}
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return r.key, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", dErrors.New(dErrors.CodeExpired, "error message has expired")
	}
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid error token")
	}
	return c.Message, nil
}

func normalize(message string) string {
	message = strings.TrimSpace(message)
	if message == "" {
		return DefaultMessage
	}
	if len(message) <= maxMessageLen {
		return message
	}
	cut := message[:maxMessageLen]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
