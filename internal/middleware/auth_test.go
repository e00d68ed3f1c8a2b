package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fullahead747-jpg/SeaCrewManager-sub001/internal/ctxkeys"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret, userID, role string, expiresIn time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": userID,
		"role":   role,
		"exp":    time.Now().Add(expiresIn).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestAuth_ValidToken(t *testing.T) {
	var gotUserID, gotRole string
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = r.Context().Value(ctxkeys.UserID).(string)
		gotRole, _ = r.Context().Value(ctxkeys.UserRole).(string)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", "fleet_manager", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", gotUserID)
	assert.Equal(t, "fleet_manager", gotRole)
}

func TestAuth_MissingHeader(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authorization header required")
}

func TestAuth_BadFormat(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	req.Header.Set("Authorization", "Token abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_WrongSecret(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", "user-1", "admin", time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid or expired token")
}

func TestAuth_ExpiredToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "user-1", "admin", -time.Hour))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_MissingUserID(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	handler := Auth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/crew", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing user ID")
}

func TestRequireMinRole(t *testing.T) {
	tests := []struct {
		userRole string
		minRole  string
		want     int
	}{
		{"viewer", "fleet_manager", http.StatusForbidden},
		{"fleet_manager", "fleet_manager", http.StatusOK},
		{"admin", "fleet_manager", http.StatusOK},
		{"viewer", "admin", http.StatusForbidden},
		{"fleet_manager", "admin", http.StatusForbidden},
		{"admin", "admin", http.StatusOK},
		{"super_admin", "admin", http.StatusOK},
		{"", "viewer", http.StatusForbidden}, // unknown role has level 0
	}

	for _, tt := range tests {
		handler := RequireMinRole(tt.minRole)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), ctxkeys.UserRole, tt.userRole))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equalf(t, tt.want, rec.Code, "role=%q min=%q", tt.userRole, tt.minRole)
	}
}

func TestInjectVesselScope_AdminBypassesQuery(t *testing.T) {
	// Admins never hit the database: a nil pool must not be dereferenced.
	handler := InjectVesselScope(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, ctxkeys.IsGlobalScope(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	for _, role := range []string{"admin", "super_admin"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), ctxkeys.UserRole, role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
