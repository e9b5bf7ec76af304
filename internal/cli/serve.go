package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/devinvista/Trip-sub001/internal/server"
	"github.com/devinvista/Trip-sub001/pkg/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API and collaboration server",
		Long: `Run the Connect API, the /ws collaboration hub, /metrics and the static
frontend until interrupted. SIGINT or SIGTERM triggers a graceful shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.readConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			// the config file may set a level that neither flag nor env did
			if opts.logLevel == "" && os.Getenv("LOG_LEVEL") == "" {
				level, _ := logging.ParseLevel(cfg.Logging.Level)
				logging.SetupWithLevel(level)
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}
			defer srv.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Run(ctx); err != nil {
				return err
			}
			slog.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, e.g. :8080 (overrides config)")
	return cmd
}
