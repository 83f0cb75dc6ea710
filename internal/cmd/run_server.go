package cmd

import (
	"log/slog"
	"net"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"labelord/pkg/replication"
)

type serverOptions struct {
	host  string
	port  int
	debug bool
}

func newRunServerCmd(o *rootOptions) *cobra.Command {
	opts := &serverOptions{}

	cmd := &cobra.Command{
		Use:   "run-server",
		Short: "Run master-to-master replication server",
		Long: `Serve the label replication webhook.

Every label event received from a configured repository is applied to all
other enabled repositories. GET / shows the replicated repositories and
GET /metrics exposes Prometheus metrics.

Examples:
  labelord run-server
  labelord run-server --host 0.0.0.0 --port 8080`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{logLevelAnnotation: "info"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.debug && !cmd.Flags().Changed("loglevel") {
				logger, err := buildLogger(cmd.Flag("logformat").Value.String(), slog.LevelDebug, cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				o.logger = logger
			}

			server, err := newReplicationServer(o, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			return server.ListenAndServe(cmd.Context(), serverAddress(cmd, o, opts))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.host, "host", "127.0.0.1", "The interface to bind to")
	flags.IntVarP(&opts.port, "port", "p", 5000, "The port to bind to")
	flags.BoolVarP(&opts.debug, "debug", "d", false, "Turns on debug logging")
	return cmd
}

// newReplicationServer validates the configuration and wires the
// replicator, its metrics and the HTTP server
func newReplicationServer(o *rootOptions, reg *prometheus.Registry) (*replication.Server, error) {
	store, err := o.labelStore()
	if err != nil {
		return nil, err
	}
	repos, err := o.cfg.WatchedRepos()
	if err != nil {
		return nil, err
	}
	secret, err := o.cfg.RequireWebhookSecret()
	if err != nil {
		return nil, err
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := replication.NewMetrics(reg)

	replicator := replication.NewReplicator(store, repos,
		replication.WithEchoGuard(replication.NewEchoGuard(o.cfg.Server.EchoWindow)),
		replication.WithLogger(o.logger),
		replication.WithMetrics(metrics),
	)

	return replication.NewServer(replicator, []byte(secret),
		replication.WithServerLogger(o.logger),
		replication.WithServerMetrics(metrics, reg),
	), nil
}

// serverAddress prefers explicit --host/--port flags over server.address
// from the configuration
func serverAddress(cmd *cobra.Command, o *rootOptions, opts *serverOptions) string {
	flags := cmd.Flags()
	if o.cfg.Server.Address != "" && !flags.Changed("host") && !flags.Changed("port") {
		return o.cfg.Server.Address
	}
	return net.JoinHostPort(opts.host, strconv.Itoa(opts.port))
}
