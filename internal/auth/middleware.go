// Package auth provides the shared-secret authentication for the trigger endpoint.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// ErrUnauthorized is reported when a request carries no valid credential
var ErrUnauthorized = errors.New("unauthorized")

// ErrEmptySecret is returned when the middleware is built without a secret
var ErrEmptySecret = errors.New("bearer secret must not be empty")

// defaultRealm is the protection space identifier
const defaultRealm = "vocabs-sync"

// bearerPrefix is the authorization scheme expected on protected routes
const bearerPrefix = "Bearer "

// bearerMiddleware compares the Authorization header with a fixed shared secret
type bearerMiddleware struct {
	expected []byte
	realm    string
}

// NewBearerMiddleware returns a middleware that admits a request only when its
// Authorization header is exactly "Bearer " followed by secret. Rejected requests
// get a 401 JSON body and never reach the next handler.
func NewBearerMiddleware(secret string) (func(http.Handler) http.Handler, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}

	m := &bearerMiddleware{
		expected: []byte(bearerPrefix + secret),
		realm:    defaultRealm,
	}
	return m.Middleware, nil
}

// Middleware returns an HTTP middleware function that performs authentication.
func (m *bearerMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.authenticate(r); err != nil {
			slog.Warn("Authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path)
			m.writeError(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *bearerMiddleware) authenticate(r *http.Request) error {
	header := r.Header.Get("Authorization")
	if header == "" {
		return fmt.Errorf("%w: missing authorization header", ErrUnauthorized)
	}
	if subtle.ConstantTimeCompare([]byte(header), m.expected) != 1 {
		return fmt.Errorf("%w: credential mismatch", ErrUnauthorized)
	}
	return nil
}

// sanitizeHeaderValue removes characters that could enable header injection attacks.
func sanitizeHeaderValue(s string) string {
	if !strings.ContainsAny(s, "\r\n\"") {
		return s
	}
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return strings.ReplaceAll(s, `"`, `\"`)
}

// writeError writes the 401 JSON response with a Bearer challenge
func (m *bearerMiddleware) writeError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Bearer realm="%s"`, sanitizeHeaderValue(m.realm)))
	w.WriteHeader(http.StatusUnauthorized)

	resp := struct {
		Error string `json:"error"`
	}{
		Error: ErrUnauthorized.Error(),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
