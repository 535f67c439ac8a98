package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testConfig = Config{Secret: "test-secret", Issuer: "traccia-test"}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "u1",
		"email": "test@example.com",
		"iss":   testConfig.Issuer,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

func TestParseValidToken(t *testing.T) {
	token := signToken(t, validClaims(), testConfig.Secret)

	claims, err := Parse(token, testConfig)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("user id = %q, want u1", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Fatalf("email = %q", claims.Email)
	}
}

func TestParseFailsClosed(t *testing.T) {
	cases := []struct {
		name  string
		token string
		want  error
	}{
		{"empty token", "", ErrMissingToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", signToken(t, validClaims(), "other-secret"), ErrInvalidToken},
		{"wrong issuer", signToken(t, jwt.MapClaims{
			"sub": "u1", "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix(),
		}, testConfig.Secret), ErrInvalidToken},
		{"missing subject", signToken(t, jwt.MapClaims{
			"iss": testConfig.Issuer, "exp": time.Now().Add(time.Hour).Unix(),
		}, testConfig.Secret), ErrInvalidToken},
		{"expired", signToken(t, jwt.MapClaims{
			"sub": "u1", "iss": testConfig.Issuer, "exp": time.Now().Add(-time.Hour).Unix(),
		}, testConfig.Secret), ErrInvalidToken},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse(tc.token, testConfig); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	mw := NewMiddleware(testConfig, func(r *http.Request) bool {
		return r.URL.Path == "/healthz"
	})

	var gotClaims *Claims
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, validClaims(), testConfig.Secret))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if gotClaims == nil || gotClaims.UserID != "u1" {
			t.Fatalf("claims not propagated: %+v", gotClaims)
		}
	})

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/activities", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("skipper bypasses auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	})
}
