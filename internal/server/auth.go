package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is what a dashboard user may do
type Role string

const (
	RoleSurveyor Role = "surveyor"
	RoleAdmin    Role = "admin"
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSurveyor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q (want surveyor or admin)", s)
}

const tokenIssuer = "flood-collector"

// SignToken creates an HS256 token carrying role
func SignToken(secret string, role Role, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
		"iss":  tokenIssuer,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// ParseToken validates tokenStr and returns its role
func ParseToken(secret, tokenStr string) (Role, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	raw, _ := claims["role"].(string)
	return ParseRole(raw)
}

type ctxKey string

const roleKey ctxKey = "role"

// authenticate puts the caller's role into the request context. Without a
// secret every caller is an admin.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.secret == "" {
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey, RoleAdmin)))
			return
		}

		authz := r.Header.Get("Authorization")
		if !strings.HasPrefix(authz, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		role, err := ParseToken(s.secret, strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey, role)))
	})
}

// requireAdmin rejects callers that are not admins
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if roleFrom(r) != RoleAdmin {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func roleFrom(r *http.Request) Role {
	role, _ := r.Context().Value(roleKey).(Role)
	return role
}
