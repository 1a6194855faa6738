package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const testSecret = "s3cr3t-update-key"

func TestNewBearerMiddleware_EmptySecret(t *testing.T) {
	t.Parallel()

	mw, err := NewBearerMiddleware("")
	require.ErrorIs(t, err, ErrEmptySecret)
	assert.Nil(t, mw)
}

func TestBearerMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantCalled bool
	}{
		{
			name:       "valid token",
			authHeader: "Bearer " + testSecret,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "missing authorization header",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong token",
			authHeader: "Bearer not-the-secret",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "token prefix only",
			authHeader: "Bearer " + testSecret[:4],
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "secret without scheme",
			authHeader: testSecret,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "lowercase scheme",
			authHeader: "bearer " + testSecret,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "basic auth",
			authHeader: "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "literal None from unset secret",
			authHeader: "Bearer None",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "trailing whitespace",
			authHeader: "Bearer " + testSecret + " ",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mw, err := NewBearerMiddleware(testSecret)
			require.NoError(t, err)

			called := false
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/sync", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalled, called)

			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				assert.Equal(t, `Bearer realm="vocabs-sync"`, rr.Header().Get("WWW-Authenticate"))
				assert.Equal(t, "unauthorized", gjson.Get(rr.Body.String(), "error").String())
			}
		})
	}
}

func TestSanitizeHeaderValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "clean", input: "vocabs-sync", want: "vocabs-sync"},
		{name: "newlines", input: "realm\r\nX-Injected: 1", want: "realmX-Injected: 1"},
		{name: "quotes", input: `a"b`, want: `a\"b`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sanitizeHeaderValue(tt.input))
		})
	}
}
