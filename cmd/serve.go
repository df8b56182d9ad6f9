package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/ethiapath/bagcamp/internal/api"
	"github.com/ethiapath/bagcamp/internal/catalog"
	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/events"
	"github.com/ethiapath/bagcamp/internal/issuer"
	"github.com/ethiapath/bagcamp/internal/token"
)

// serveCmd runs the origin issuer API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the download authorization API (trusted origin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr == "" {
			addr = cfg.Server.Addr
		}

		signingSecret, sessionSecret := secrets()
		secretCfg := config.Secrets{SigningSecret: signingSecret, SessionSecret: sessionSecret}
		if err := secretCfg.Validate(); err != nil {
			return fmt.Errorf("checking secrets: %w", err)
		}
		if len(sessionSecret) == 0 {
			return errors.New("session secret is not configured")
		}

		codec, err := token.NewCodec(signingSecret, cfg.Download.Issuer)
		if err != nil {
			return fmt.Errorf("building token codec: %w", err)
		}

		log.Info().Str("type", cfg.Catalog.Type).Msg("Initializing catalog...")
		cat, err := catalog.Build(cfg.Catalog)
		if err != nil {
			return fmt.Errorf("building catalog: %w", err)
		}
		defer func() {
			_ = cat.Close()
		}()

		log.Info().Str("type", cfg.Events.Type).Msg("Initializing download recorder...")
		recorder, err := events.Build(cfg.Events)
		if err != nil {
			return fmt.Errorf("building download recorder: %w", err)
		}
		defer func() {
			_ = recorder.Close()
		}()

		svc, err := issuer.NewService(cat, cat, recorder, codec, cfg.Download, cfg.Server.DevMode)
		if err != nil {
			return fmt.Errorf("building issuer service: %w", err)
		}

		srv := api.NewServer(svc, sessionSecret)
		server := &http.Server{
			Addr:    addr,
			Handler: srv.Routes(),
		}

		go func() {
			log.Info().Msgf("Starting origin server on %s...", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "address to listen on (overrides config)")
}
