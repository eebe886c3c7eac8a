// Package auth authenticates API requests with HS256 bearer tokens and
// carries the resolved user in the request context.
//
// Tokens are issued elsewhere on the platform; this service only verifies
// them. The token identifies the user, but role and status always come from
// the database (via UserFetcher) so a role change or a disabled account
// takes effect on the next request.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// User is the authenticated caller as seen by handlers.
type User struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// UserFetcher loads the current state of a user. It returns nil when the
// user does not exist, is disabled, or can not be loaded.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *User
}

// Claims is the token payload. Only the subject user id is trusted; the
// role claim is informational.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var ErrMissingToken = errors.New("missing bearer token")

// ParseToken verifies an HS256 token. issuer is checked when non-empty.
func ParseToken(secret, issuer, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// Middleware verifies bearer tokens and loads the user.
type Middleware struct {
	secret  string
	issuer  string
	fetcher UserFetcher
	log     *zap.Logger
}

func NewMiddleware(secret, issuer string, fetcher UserFetcher, logger *zap.Logger) *Middleware {
	return &Middleware{secret: secret, issuer: issuer, fetcher: fetcher, log: logger}
}

// Authenticate rejects the request with 401 unless it carries a valid token
// for an active user.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Token de acceso requerido", ErrMissingToken)
			return
		}
		claims, err := ParseToken(m.secret, m.issuer, token)
		if err != nil {
			m.log.Debug("rejecting bearer token", zap.Error(err))
			writeError(w, http.StatusUnauthorized, "Token inválido o expirado", err)
			return
		}
		u := m.fetcher.FetchUser(r.Context(), claims.UserID)
		if u == nil {
			writeError(w, http.StatusUnauthorized, "Usuario no encontrado o inactivo", nil)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the authenticated user, if any.
func CurrentUser(r *http.Request) (*User, bool) {
	u, ok := r.Context().Value(currentUserKey).(*User)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, bypassing token checks.
// Handler tests only.
func WithTestUser(r *http.Request, u *User) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeError mirrors the API error envelope. It lives here because the
// middleware runs before any feature package.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]string{"status": "error", "message": message}
	if err != nil {
		body["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
