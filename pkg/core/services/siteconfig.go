package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
)

type siteConfigSource interface {
	SiteConfig(ctx context.Context) (*domain.SiteConfig, error)
}

// SiteConfigCache keeps the public site configuration for a short TTL so
// every dashboard render does not refetch it.
type SiteConfigCache struct {
	mu       sync.RWMutex
	cfg      *domain.SiteConfig
	exp      time.Time
	ttl      time.Duration
	fallback domain.SiteConfig
}

func NewSiteConfigCache(ttl time.Duration, fallback domain.SiteConfig) *SiteConfigCache {
	return &SiteConfigCache{ttl: ttl, fallback: fallback}
}

// Get returns the cached config, refreshing it from src when stale. A failed
// refresh falls back to the defaults and is not cached.
func (c *SiteConfigCache) Get(ctx context.Context, src siteConfigSource) domain.SiteConfig {
	c.mu.RLock()
	if c.cfg != nil && time.Now().Before(c.exp) {
		cfg := *c.cfg
		c.mu.RUnlock()
		return cfg
	}
	c.mu.RUnlock()

	cfg, err := src.SiteConfig(ctx)
	if err != nil {
		slog.Warn("Failed to load site config, using defaults", "error", err)
		return c.fallback
	}
	if cfg.FaviconAPI == "" {
		cfg.FaviconAPI = c.fallback.FaviconAPI
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = c.fallback.SiteTitle
	}

	c.mu.Lock()
	c.cfg = cfg
	c.exp = time.Now().Add(c.ttl)
	c.mu.Unlock()
	return *cfg
}

func (c *SiteConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = nil
}
