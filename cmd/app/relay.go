package main

import (
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/auth"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/httpmw"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/limiter"
	logpkg "github.com/ProTeamWorkforce/ImageAi-APp/internal/logger"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/metrics"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/relay"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/statuscheck"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/storage"
	"github.com/ProTeamWorkforce/ImageAi-APp/internal/web"
)

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Run the authenticated relay and dashboard",
		Args:  cobra.NoArgs,
		RunE:  runRelay,
	}
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfg := loadConfig("imageai-relay")
	defer logpkg.Close()
	metrics.Init()
	ctx := cmd.Context()

	verifier, err := auth.NewVerifier(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	status := statuscheck.Options{
		BackendURL:            cfg.Relay.BackendURL,
		VisionCredentialsFile: cfg.Vision.CredentialsFile,
		ArchiveKind:           cfg.Archive.Backend,
	}
	if cfg.Redis.URL != "" {
		rdb, err := limiter.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable for status checks")
		} else {
			defer rdb.Close()
			status.Redis = limiter.New(limiter.Options{Redis: rdb})
		}
	}
	archive, err := storage.New(ctx, cfg.Archive)
	if err != nil {
		log.Warn().Err(err).Msg("archive unavailable for status checks")
	} else if archive != nil {
		status.Archive = archive
		defer storage.Close(archive)
	}

	mux := http.NewServeMux()
	relay.New(relay.Options{
		BackendURL:     cfg.Relay.BackendURL,
		Timeout:        cfg.Relay.Timeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
	}).RegisterRoutes(mux, auth.Middleware(verifier, cfg.Server.ExposeErrorDetails))
	mux.Handle("/api/diagnostic", relay.Diagnostic{
		BackendURL:  cfg.Relay.BackendURL,
		Environment: cfg.Server.Environment,
		ProjectID:   cfg.Auth.ProjectID,
		AuthMode:    cfg.Auth.Mode,
	})
	mux.Handle("/api/status", statuscheck.New(status))
	mux.Handle("/metrics", metrics.Handler())
	web.New(web.Options{ProjectID: cfg.Auth.ProjectID, AuthMode: cfg.Auth.Mode}).RegisterRoutes(mux)

	log.Info().
		Str("backend", cfg.Relay.BackendURL).
		Str("auth_mode", cfg.Auth.Mode).
		Dur("timeout", cfg.Relay.Timeout).
		Msg("relay configured")
	h := httpmw.Chain(mux, httpmw.RequestID, httpmw.Recover, httpmw.AccessLog)
	return serve(ctx, newServer(cfg.Server.RelayPort, h))
}
