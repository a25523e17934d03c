package repository

import (
	"context"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/repository/postgres"
	"github.com/wadjakorntonsri/onepanel-web/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// Open picks the storage backend from the URL scheme: postgres URLs go to
// pgx, everything else (file paths, libsql://, wss://) to sqlite.
func Open(ctx context.Context, storageURL string) (ports.Storage, error) {
	if strings.HasPrefix(storageURL, "postgres://") || strings.HasPrefix(storageURL, "postgresql://") {
		repo, err := postgres.NewRepository(ctx, storageURL)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	repo, err := sqlite.NewSQLiteRepository(storageURL)
	if err != nil {
		return nil, err
	}
	return repo, nil
}
