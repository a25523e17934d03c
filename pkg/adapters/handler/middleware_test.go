package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
)

func TestSessionMiddleware(t *testing.T) {
	cfg := &config.Config{
		JWTSecret: "testservlet",
	}
	mw := NewMiddleware(cfg)

	tests := []struct {
		name          string
		cookieValue   string
		wantNamespace string
		wantNewCookie bool
	}{
		{
			name:          "No Cookie",
			wantNewCookie: true,
		},
		{
			name:          "Invalid Cookie",
			cookieValue:   "invalid",
			wantNewCookie: true,
		},
		{
			name:          "Wrong Secret",
			cookieValue:   generateTestToken(t, "other-secret", "ns-1", time.Now().Add(time.Hour)),
			wantNewCookie: true,
		},
		{
			name:          "Expired Cookie",
			cookieValue:   generateTestToken(t, cfg.JWTSecret, "ns-1", time.Now().Add(-time.Hour)),
			wantNewCookie: true,
		},
		{
			name:          "Valid Cookie",
			cookieValue:   generateTestToken(t, cfg.JWTSecret, "ns-1", time.Now().Add(time.Hour)),
			wantNamespace: "ns-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.cookieValue != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookieValue})
			}

			var namespace string
			rr := httptest.NewRecorder()
			handler := mw.Session(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				namespace = Namespace(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(rr, req)

			if status := rr.Code; status != http.StatusOK {
				t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
			}
			if namespace == "" {
				t.Fatal("expected a namespace in the request context")
			}
			if tt.wantNamespace != "" && namespace != tt.wantNamespace {
				t.Errorf("got namespace %q want %q", namespace, tt.wantNamespace)
			}

			issued := sessionCookie(rr.Result().Cookies())
			if tt.wantNewCookie != (issued != nil) {
				t.Fatalf("cookie issued = %v, want %v", issued != nil, tt.wantNewCookie)
			}
			if issued != nil {
				// the minted cookie must resolve to the same namespace
				again := httptest.NewRequest("GET", "/", nil)
				again.AddCookie(issued)
				if got, ok := mw.namespace(again); !ok || got != namespace {
					t.Errorf("minted cookie resolves to %q, %v", got, ok)
				}
			}
		})
	}
}

func sessionCookie(cookies []*http.Cookie) *http.Cookie {
	for _, c := range cookies {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func generateTestToken(t *testing.T, secret, subject string, expirationTime time.Time) string {
	claims := &jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expirationTime),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}
