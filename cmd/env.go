package main

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/territory-engine/internal/boundary"
	"github.com/sells-group/territory-engine/internal/coverage"
	"github.com/sells-group/territory-engine/internal/isochrone"
	"github.com/sells-group/territory-engine/internal/store"
)

// engineEnv holds the wired engine components needed by the
// coverage/serve/territory commands.
type engineEnv struct {
	Store      store.Store
	Boundaries *boundary.Store
	Cache      *coverage.Cache
	Calculator *coverage.Calculator
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEngine wires the store, boundary data, provider client, cache,
// and calculator from config. Callers should defer env.Close().
func initEngine() (*engineEnv, error) {
	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	boundaries := boundary.Load(cfg.Boundary.Path)
	if boundaries.Len() == 0 {
		zap.L().Warn("no zone boundaries loaded", zap.String("path", cfg.Boundary.Path))
	}

	client := isochrone.NewClient(cfg.Isochrone.Token,
		isochrone.WithBaseURL(cfg.Isochrone.BaseURL),
		isochrone.WithProfile(cfg.Isochrone.Profile),
		isochrone.WithRateLimit(cfg.Isochrone.RPS),
		isochrone.WithRetries(cfg.Isochrone.Retries),
		isochrone.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Isochrone.TimeoutSecs) * time.Second}),
	)

	cache := coverage.NewCache(st)
	calc := coverage.NewCalculator(client, boundaries, cache,
		coverage.WithConcurrency(cfg.Coverage.Concurrency))

	return &engineEnv{
		Store:      st,
		Boundaries: boundaries,
		Cache:      cache,
		Calculator: calc,
	}, nil
}
