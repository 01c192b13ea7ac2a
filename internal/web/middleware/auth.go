package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lakshya1112/Buyer-lead-app/internal/core"
	"github.com/lakshya1112/Buyer-lead-app/internal/logging"
)

// Claims are the JWT claims accepted by the API. Subject identifies the
// actor; Name or Email labels them in history entries.
type Claims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts the claims into the identity used by the core service.
func (c Claims) Actor() core.Actor {
	label := c.Name
	if label == "" {
		label = c.Email
	}
	return core.Actor{ID: c.Subject, Label: label}
}

var errInvalidToken = errors.New("invalid token")

// JWTAuth verifies an HMAC-signed bearer token and stores the actor in
// the request context. Requests without a valid token get 401.
func JWTAuth(secret, issuer string) func(http.Handler) http.Handler {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(parser, secret, r.Header.Get("Authorization"))
			if err != nil {
				slog.Warn("auth: rejected token",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, core.ErrUnauthenticated)
				return
			}

			ctx := core.ContextWithActor(r.Context(), claims.Actor())
			ctx = logging.WithActorID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(parser *jwt.Parser, secret, header string) (*Claims, error) {
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, errors.New("missing bearer token")
	}

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	return claims, nil
}

// writeError renders err as the API's JSON error body.
func writeError(w http.ResponseWriter, status int, err error) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
