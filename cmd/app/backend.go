package main

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/backend"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/convert"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/imagerender"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/limiter"
	logpkg "github.com/ProTeamWorkforce/ImageAi-APp/internal/logger"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/metrics"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/storage"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/store"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/vision"
)

func backendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backend",
		Short: "Run the conversion backend",
		Args:  cobra.NoArgs,
		RunE:  runBackend,
	}
}

func runBackend(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig("imageai-backend")
	defer logpkg.Close()
	metrics.Init()
	ctx := cmd.Context()

	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		c, err := limiter.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable; cache and quota cooldown disabled")
		} else {
			rdb = c
			defer rdb.Close()
		}
	}

	lim := limiter.New(limiter.Options{
		Redis:       rdb,
		MaxInflight: cfg.Vision.MaxInflight,
		BaseBackoff: cfg.Redis.CooldownBase,
		MaxBackoff:  cfg.Redis.CooldownMax,
	})
	vc, err := vision.New(ctx, vision.Options{
		CredentialsFile: cfg.Vision.CredentialsFile,
		Timeout:         cfg.Vision.Timeout,
		Limiter:         lim,
	})
	if err != nil {
		return err
	}
	defer vc.Close()

	var cache store.EnvelopeCache
	if rdb != nil {
		cache = store.NewRedisCache(rdb, cfg.Redis.CacheTTL)
	}

	archive, err := storage.New(ctx, cfg.Archive)
	if err != nil {
		return err
	}
	if la, ok := archive.(*storage.LocalArchive); ok && cfg.Archive.Retention > 0 {
		go la.RunCleanup(ctx, cfg.Archive.Retention, time.Hour)
	}
	defer storage.Close(archive)

	srv := backend.New(backend.Dependencies{
		Converter: convert.NewService(vc, convert.Options{
			SearchLimit:   cfg.Vision.SearchLimit,
			SearchPartial: cfg.Vision.SearchPartial,
		}),
		Cache:              cache,
		Archive:            archive,
		ArchivePrefix:      cfg.Archive.Prefix,
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		ExposeErrorDetails: cfg.Server.ExposeErrorDetails,
		PDF: imagerender.Options{
			DPI:      cfg.PDF.DPI,
			Quality:  cfg.PDF.Quality,
			MaxPages: cfg.PDF.MaxPages,
		},
	})

	log.Info().
		Bool("cache", cache != nil).
		Str("archive", cfg.Archive.Backend).
		Bool("search_partial", cfg.Vision.SearchPartial).
		Msg("backend configured")
	return serve(ctx, newServer(cfg.Server.BackendPort, srv.Handler()))
}
