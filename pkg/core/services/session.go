package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// Well-known storage keys, shared with the original browser front end.
const (
	TokenKey      = "onepanel_token"
	AdminTokenKey = "onepanel_admin_token"
	UserKey       = "onepanel_user"
)

// Session is the SessionStore of one viewer. It never keeps the token in
// memory: every call goes back to storage, so a logout elsewhere is seen
// immediately.
type Session struct {
	storage   ports.Storage
	namespace string
	tokenKey  string
	now       func() time.Time
}

func NewSession(storage ports.Storage, namespace string) *Session {
	return &Session{storage: storage, namespace: namespace, tokenKey: TokenKey, now: time.Now}
}

// NewAdminSession stores the admin console token separately from the
// dashboard token, as the two surfaces log in independently.
func NewAdminSession(storage ports.Storage, namespace string) *Session {
	return &Session{storage: storage, namespace: namespace, tokenKey: AdminTokenKey, now: time.Now}
}

func (s *Session) Namespace() string {
	return s.namespace
}

func (s *Session) Token(ctx context.Context) (string, error) {
	token, ok, err := s.storage.Get(ctx, s.namespace, s.tokenKey)
	if err != nil || !ok {
		return "", err
	}
	if s.expired(token) {
		return "", s.Clear(ctx)
	}
	return token, nil
}

func (s *Session) SetToken(ctx context.Context, token string) error {
	return s.storage.Set(ctx, s.namespace, s.tokenKey, token)
}

// Clear drops the token and the cached user.
func (s *Session) Clear(ctx context.Context) error {
	if err := s.storage.Delete(ctx, s.namespace, s.tokenKey); err != nil {
		return err
	}
	return s.storage.Delete(ctx, s.namespace, UserKey)
}

func (s *Session) CachedUser(ctx context.Context) (*domain.User, error) {
	raw, ok, err := s.storage.Get(ctx, s.namespace, UserKey)
	if err != nil || !ok {
		return nil, err
	}
	var user domain.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		// A corrupt cache entry is as good as none.
		return nil, nil
	}
	return &user, nil
}

func (s *Session) SetCachedUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.storage.Delete(ctx, s.namespace, UserKey)
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, s.namespace, UserKey, string(raw))
}

// expired peeks at the exp claim without verifying the signature; the backend
// stays the judge of validity, this only spares a request that would 401.
func (s *Session) expired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return s.now().After(exp.Time)
}

var _ ports.SessionStore = (*Session)(nil)
