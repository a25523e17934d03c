package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/onepanel-web/pkg/app"
	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
)

var mux http.Handler

func init() {
	cfg := config.Load()

	// Serverless instances are ephemeral: STORAGE_URL should point at Turso
	// or Postgres, or every cold start forgets its sessions.
	srv, err := app.NewServer(context.Background(), cfg)
	if err != nil {
		panic(err)
	}
	mux = srv.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
