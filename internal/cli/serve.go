package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/busscope/internal/server"
	"github.com/roach88/busscope/internal/servicecontrol"
	"github.com/roach88/busscope/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve conversations, reconstructed models and message operations over
HTTP, with Prometheus metrics at /metrics.

When a snapshot database is configured, every fetched conversation is
stored. With monitor.enabled the service is pinged in the background and
its state is reported by /healthz.

Examples:
  busscope serve --addr :8080
  busscope serve --url http://localhost:33333/api --db ./busscope.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "snapshot database (default from config)")
	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg := opts.Config
	ctx := cmd.Context()

	addr := opts.Addr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}

	metrics := server.NewMetrics()
	client, err := opts.newClient(servicecontrol.WithObserver(metrics.Observer()))
	if err != nil {
		return err
	}

	serverOpts := []server.Option{
		server.WithMetrics(metrics),
		server.WithSourceName(client.BaseURL()),
		server.WithConversationPageSize(cfg.ConversationPageSize),
	}

	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		serverOpts = append(serverOpts, server.WithStore(st))
	}

	if cfg.Monitor.Enabled {
		monitor := servicecontrol.NewMonitor(client, cfg.Monitor.Interval,
			servicecontrol.OnError(func(err error, kind servicecontrol.ErrorKind) {
				metrics.SetUpstreamHealthy(false)
			}),
			servicecontrol.OnRecover(func() {
				metrics.SetUpstreamHealthy(true)
			}),
		)
		// Healthy until the first failed check says otherwise.
		metrics.SetUpstreamHealthy(true)
		monitor.Start(ctx)
		defer monitor.Stop()
		serverOpts = append(serverOpts, server.WithHealth(monitor.Status))
	}

	slog.Info("starting api", "addr", addr, "service_url", client.BaseURL(), "database", dbPath)
	if err := server.New(client, serverOpts...).ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("api server on %s", addr), err)
	}
	return nil
}
