// Package app wires the BFF together from configuration. Both the standalone
// server and the serverless entry point build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/handler"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/onepanel"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/repository"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/services"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
	"github.com/wadjakorntonsri/onepanel-web/web"
)

const siteConfigTTL = time.Minute

type Server struct {
	Handler http.Handler
	storage ports.Storage
	board   *services.HealthBoard
	// healthIdle is how long the board keeps results nobody looks at.
	healthIdle time.Duration
}

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	storage, err := repository.Open(ctx, cfg.StorageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	tmpl, err := web.Templates()
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	client := onepanel.NewClient(cfg.APIBaseURL, nil, cfg.HTTPTimeout)
	siteConfig := services.NewSiteConfigCache(siteConfigTTL, domain.SiteConfig{FaviconAPI: cfg.FaviconAPI})
	prober := services.HTTPProber{Client: services.NewProbeClient(cfg.HealthTimeout)}
	board := services.NewHealthBoard()
	health := services.NewHealthChecker(prober, board, cfg.HealthTimeout)

	h := handler.NewRouter(cfg, handler.Deps{
		Storage: storage,
		Backend: func(session ports.SessionStore) handler.Backend {
			return client.WithSession(session)
		},
		Templates:  tmpl.ExecuteTemplate,
		Assets:     web.Assets(),
		Renderer:   services.NewRenderer(siteConfig, health),
		OrderSync:  services.NewOrderSync(),
		Health:     health,
		SiteConfig: siteConfig,
	})
	return &Server{Handler: h, storage: storage, board: board, healthIdle: config.DefaultHealthIdle}, nil
}

// PurgeIdle drops browser namespaces untouched for maxAge. Storage that
// cannot purge is left alone.
func (s *Server) PurgeIdle(ctx context.Context, maxAge time.Duration) (int64, error) {
	p, ok := s.storage.(ports.Purger)
	if !ok || maxAge <= 0 {
		return 0, nil
	}
	return p.Purge(ctx, time.Now().Add(-maxAge))
}

// RunJanitor drops idle health results and purges idle namespaces every
// interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.board.Sweep(s.healthIdle); n > 0 {
				slog.Debug("Dropped idle health results", "scopes", n)
			}
			n, err := s.PurgeIdle(ctx, maxAge)
			if err != nil {
				slog.Error("Failed to purge idle sessions", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged idle sessions", "rows", n)
			}
		}
	}
}

func (s *Server) Close() error {
	return s.storage.Close()
}
