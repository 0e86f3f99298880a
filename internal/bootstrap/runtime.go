// Package bootstrap assembles the video service from configuration. Both the
// API and the poller process start from here.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"veostudio/internal/adapter/repo"
	"veostudio/internal/infra"
	"veostudio/internal/infra/credentials"
	"veostudio/internal/lease"
	"veostudio/internal/providers/prompt"
	"veostudio/internal/providers/vertex"
	"veostudio/internal/providers/video"
	"veostudio/internal/videogen"
)

// Runtime holds the long-lived resources of one process.
type Runtime struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	SQL     *infra.SQLRunner
	Users   *repo.UserRepositoryPG
	Service *videogen.Service
}

// New connects storage and builds the service. Close must be called on the
// returned runtime.
func New(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*Runtime, error) {
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Pool: pool}
	rt.SQL = infra.NewSQLRunner(pool, logger)
	rt.Users = repo.NewUserRepository(rt.SQL)

	saJSON, err := resolveServiceAccount(ctx, cfg, credentials.NewStore(rt.SQL), logger)
	if err != nil {
		rt.Close()
		return nil, err
	}
	creds := vertex.NewCredentialProvider(vertex.CredentialOptions{
		ServiceAccountJSON: saJSON,
		TokenURL:           cfg.Vertex.TokenURL,
		Timeout:            cfg.Vertex.TokenTimeout,
		Logger:             logger,
	})
	if creds.ClientEmail() == "" {
		logger.Warn().Msg("vertex service account is missing or unusable; submissions will fail until it is configured")
	}
	endpoints := vertex.NewEndpoints(cfg.Vertex.BaseURL, cfg.Vertex.ProjectID, cfg.Vertex.Location)

	videos := video.NewClient(video.Options{
		Endpoints:     endpoints,
		SubmitTimeout: cfg.Vertex.SubmitTimeout,
		PollTimeout:   cfg.Vertex.PollTimeout,
		Logger:        logger,
	})

	var enricher prompt.Enricher = prompt.NewPassthrough()
	if cfg.Vertex.EnrichEnabled {
		gemini, err := prompt.NewGeminiEnricher(prompt.GeminiOptions{
			Tokens:    creds,
			Endpoints: endpoints,
			Model:     cfg.Vertex.EnrichModel,
			Timeout:   cfg.Vertex.EnrichTimeout,
			Logger:    logger,
			OnFallback: func(reason string, err error) {
				logger.Warn().Err(err).Str("reason", reason).Msg("prompt enrichment fell back to raw prompt")
			},
		})
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("build prompt enricher: %w", err)
		}
		enricher = gemini
	}

	opts := videogen.Options{
		Jobs:         repo.NewJobRepository(rt.SQL),
		Tokens:       creds,
		Videos:       videos,
		Enricher:     enricher,
		DefaultModel: cfg.Vertex.DefaultVideoModel,
		Logger:       logger,
	}
	client, err := infra.NewRedisClient(ctx, cfg)
	switch {
	case err != nil:
		logger.Warn().Err(err).Msg("redis unavailable; reconcile lease disabled")
	case client != nil:
		rt.Redis = client
		opts.Lease = lease.NewRedisLease(client, logger)
	}

	rt.Service, err = videogen.NewService(opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases the pool and the redis client.
func (rt *Runtime) Close() {
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
}

type serviceAccountSource interface {
	ServiceAccount(ctx context.Context) (string, error)
}

// resolveServiceAccount prefers the environment and falls back to the
// integration secret store.
func resolveServiceAccount(ctx context.Context, cfg *infra.Config, store serviceAccountSource, logger zerolog.Logger) (string, error) {
	if raw := strings.TrimSpace(cfg.Vertex.ServiceAccountJSON); raw != "" {
		return raw, nil
	}
	raw, err := store.ServiceAccount(ctx)
	if err != nil {
		return "", fmt.Errorf("load stored service account: %w", err)
	}
	if raw != "" {
		logger.Info().Msg("using service account from integration store")
	}
	return raw, nil
}
