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

	"github.com/ethiapath/bagcamp/internal/api/middleware"
	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/edge"
	"github.com/ethiapath/bagcamp/internal/token"
)

// edgeCmd runs the edge verifier in front of the storage origin.
var edgeCmd = &cobra.Command{
	Use:   "edge",
	Short: "Run the edge verifier in front of the storage origin",
	Long: `The edge verifier gates every file request using only the request
	itself: cookie extraction, signature verification, audience, issuer,
	expiry and exact path matching. It never calls back to the origin API
	or the database.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		upstream, _ := cmd.Flags().GetString("upstream")

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if addr == "" {
			addr = cfg.Edge.Addr
		}
		if upstream == "" {
			upstream = cfg.Edge.Upstream
		}

		signingSecret, _ := secrets()
		if len(signingSecret) == 0 {
			return errors.New("signing secret is not configured")
		}

		codec, err := token.NewCodec(signingSecret, cfg.Download.Issuer)
		if err != nil {
			return fmt.Errorf("building token codec: %w", err)
		}

		handler, err := edge.NewHandler(codec, upstream, cfg.Download.CookieName)
		if err != nil {
			return fmt.Errorf("building edge handler: %w", err)
		}

		server := &http.Server{
			Addr: addr,
			Handler: middleware.RecoverMiddleware(
				middleware.CorrelationIDMiddleware(
					middleware.LoggingMiddleware(
						handler))),
		}

		go func() {
			log.Info().Msgf("Starting edge verifier on %s (upstream: %s)...", addr, upstream)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server crashed")
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info().Msg("Shutting down edge verifier...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Edge verifier exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(edgeCmd)

	edgeCmd.Flags().String("addr", "", "address to listen on (overrides config)")
	edgeCmd.Flags().String("upstream", "", "storage origin base URL (overrides config)")
}
