package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

const testUserID = "0123456789abcdef01234567"

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	valid := signed(t, testSecret, jwt.MapClaims{
		"user_id": testUserID,
		"role":    "admin",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := signed(t, testSecret, jwt.MapClaims{
		"user_id": testUserID,
		"role":    "player",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	foreign := signed(t, []byte("other-secret"), jwt.MapClaims{"user_id": testUserID})
	badID := signed(t, testSecret, jwt.MapClaims{"user_id": 42})

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"valid header", "Bearer " + valid, "", http.StatusOK},
		{"valid query token", "", valid, http.StatusOK},
		{"missing token", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"numeric user id", "Bearer " + badID, "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			var gotRole string
			h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, err := GetUserIDFromContext(r.Context())
				require.NoError(t, err)
				role, err := GetUserRoleFromContext(r.Context())
				require.NoError(t, err)
				gotID, gotRole = id, string(role)
				w.WriteHeader(http.StatusOK)
			}))

			target := "/"
			if tt.query != "" {
				target = "/?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, testUserID, gotID)
				assert.Equal(t, "admin", gotRole)
			} else {
				assert.Contains(t, rec.Body.String(), `"code":1`)
			}
		})
	}
}

func TestGetUserIDFromContextWithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetUserIDFromContext(req.Context())
	assert.Error(t, err)
}
