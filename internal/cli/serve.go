package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/peergraph/internal/server"
	"github.com/matzehuels/peergraph/pkg/observability"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the resolver over HTTP",
		Long: `Serve the resolver over HTTP until interrupted.

  POST /v1/resolve   {"requirements": [...], "snapshot": {...}} -> lockfile
  POST /v1/graph     lockfile -> DOT (?format=svg for SVG)
  GET  /healthz
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.settings()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			observability.NewPrometheus(reg).Install()

			runner, err := c.newRunner(ctx, cfg, noCache, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			printKeyValue("Address", StyleHighlight.Render(addr))
			printKeyValue("Registry", cfg.RegistryURL)
			printKeyValue("Cache", cacheDescription(cfg.Cache.Backend, cfg.Cache.Dir, noCache))

			return server.New(runner, loggerFromContext(ctx), reg).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the registry response cache")

	return cmd
}
