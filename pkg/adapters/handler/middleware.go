package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
)

const (
	SessionCookie = "onepanel_session"
	sessionTTL    = 365 * 24 * time.Hour
)

type contextKey string

const namespaceKey contextKey = "namespace"

type Middleware struct {
	jwtSecret    []byte
	isProduction bool
}

func NewMiddleware(cfg *config.Config) *Middleware {
	return &Middleware{
		jwtSecret:    []byte(cfg.JWTSecret),
		isProduction: cfg.IsProduction(),
	}
}

// Session resolves the browser's storage namespace from the signed session
// cookie. The dashboard is public, so a missing or invalid cookie never
// rejects the request: a fresh guest namespace is minted instead.
func (m *Middleware) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		namespace, ok := m.namespace(r)
		if !ok {
			var err error
			namespace, err = m.issue(w)
			if err != nil {
				slog.Error("Failed to issue session cookie", "error", err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
		}

		ctx := context.WithValue(r.Context(), namespaceKey, namespace)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *Middleware) namespace(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", false
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(token *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func (m *Middleware) issue(w http.ResponseWriter) (string, error) {
	namespace := uuid.NewString()
	expirationTime := time.Now().Add(sessionTTL)
	claims := &jwt.RegisteredClaims{
		Subject:   namespace,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.jwtSecret)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tokenString,
		Expires:  expirationTime,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return namespace, nil
}

// Namespace returns the storage namespace Session put in ctx.
func Namespace(ctx context.Context) string {
	ns, _ := ctx.Value(namespaceKey).(string)
	return ns
}
