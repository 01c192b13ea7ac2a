package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
)

const testSecret = "test-secret-0123456789"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims() Claims {
	return Claims{
		Name: "Asha Agent",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "agent-1",
			Issuer:    "leads",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestJWTAuth_ValidToken(t *testing.T) {
	var got core.Actor
	var logged string
	h := JWTAuth(testSecret, "leads")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = core.ActorFromContext(r.Context())
		logged = logging.ActorID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims()))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, core.Actor{ID: "agent-1", Label: "Asha Agent"}, got)
	assert.Equal(t, "agent-1", logged)
}

func TestJWTAuth_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noSubject := validClaims()
	noSubject.Subject = ""

	otherIssuer := validClaims()
	otherIssuer.Issuer = "someone-else"

	noExpiry := validClaims()
	noExpiry.ExpiresAt = nil

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte("another-secret-value"), validClaims())},
		{"expired", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired)},
		{"no subject", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noSubject)},
		{"wrong issuer", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), otherIssuer)},
		{"no expiry", "Bearer " + signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry)},
		{"none algorithm", "Bearer " + signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims())},
	}

	h := JWTAuth(testSecret, "leads")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run")
	}))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "AUTH001", body["code"])
		})
	}
}

func TestClaimsActor_FallsBackToEmail(t *testing.T) {
	c := Claims{Email: "a@example.com", RegisteredClaims: jwt.RegisteredClaims{Subject: "u1"}}
	assert.Equal(t, core.Actor{ID: "u1", Label: "a@example.com"}, c.Actor())
}
