package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const userIDHeader = "X-User-Id"

type principalKey struct{}

func principalFrom(ctx context.Context) string {
	id, _ := ctx.Value(principalKey{}).(string)
	return id
}

// identityMiddleware resolves the caller. Tokens are verified by the gateway
// in front of the service, so only the sub claim is read here.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.principal(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
			return
		}
		if entry := auditEntryFrom(r.Context()); entry != nil {
			entry.UserID = id
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey{}, id)))
	})
}

func (s *Server) principal(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return "", errors.New("authorization is not a bearer token")
		}
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(raw), &claims); err != nil {
			return "", fmt.Errorf("malformed bearer token: %w", err)
		}
		if claims.Subject == "" {
			return "", errors.New("bearer token has no sub claim")
		}
		return claims.Subject, nil
	}
	if s.cfg.TrustUserHeader {
		if id := strings.TrimSpace(r.Header.Get(userIDHeader)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("missing credentials")
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.admin == nil {
			next.ServeHTTP(w, r)
			return
		}

		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		valid, err := s.admin.ValidateAdmin(r.Context(), username, password)
		if err != nil {
			s.logger.Error("Admin validation failed", zap.String("username", username), zap.Error(err))
		}
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// StaticAdmin validates against one configured account. PasswordHash is a
// bcrypt hash.
type StaticAdmin struct {
	Username     string
	PasswordHash string
}

func (a StaticAdmin) ValidateAdmin(_ context.Context, username, password string) (bool, error) {
	if a.Username == "" || username != a.Username {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("comparing admin password: %w", err)
	}
	return true, nil
}
