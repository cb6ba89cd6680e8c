package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AdminAuthConfig controls the administrative capability check.
type AdminAuthConfig struct {
	// HMACSecret signs admin tokens. Empty rejects every admin request.
	HMACSecret string
	// RequiredScope must appear in the token's scope claim.
	RequiredScope string
	// ClockSkew widens the validity window for exp/nbf checks.
	ClockSkew time.Duration
}

// AdminAuthenticator validates bearer JWTs carrying the curve admin scope.
// Holding a valid token is the capability that unlocks parameter mutation.
type AdminAuthenticator struct {
	cfg    AdminAuthConfig
	secret []byte
}

// NewAdminAuthenticator constructs an authenticator from the supplied config.
func NewAdminAuthenticator(cfg AdminAuthConfig) *AdminAuthenticator {
	if strings.TrimSpace(cfg.RequiredScope) == "" {
		cfg.RequiredScope = "curve.admin"
	}
	return &AdminAuthenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Middleware rejects requests lacking a valid admin token.
func (a *AdminAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if a == nil || len(a.secret) == 0 {
			http.Error(w, "administrative access disabled", http.StatusForbidden)
			return
		}
		token := bearerToken(req)
		if token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if err := a.validate(token); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (a *AdminAuthenticator) validate(raw string) error {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	scope, _ := claims["scope"].(string)
	for _, entry := range strings.Fields(scope) {
		if entry == a.cfg.RequiredScope {
			return nil
		}
	}
	return fmt.Errorf("missing required scope %s", a.cfg.RequiredScope)
}

func bearerToken(req *http.Request) string {
	header := strings.TrimSpace(req.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
