package cmd

import (
	"context"
	"time"

	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/web"
	"github.com/spf13/cobra"
)

var (
	servePort int
	serveHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the face authentication HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := newService(ctx)
		if err != nil {
			return err
		}

		cfg := Cfg.Server
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cfg.APIKey == "" {
			logger.Warning("API_KEY is not set; the API accepts unauthenticated requests")
		}

		server := web.NewServer(cfg, svc, readiness())

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}

// readiness pings the database and, when configured, Redis.
func readiness() func(ctx context.Context) error {
	var checks []func(ctx context.Context) error
	if pg, ok := DB.(*store.Store); ok {
		checks = append(checks, pg.Ping)
	}
	if redisLocker != nil {
		checks = append(checks, redisLocker.Ping)
	}
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides HTTP_PORT)")
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Host to bind to (overrides HTTP_HOST)")
	rootCmd.AddCommand(serveCmd)
}
