package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/chatkit-broker/internal/adapters/httpapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ChatKit session endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			server := httpapi.NewServer(app.broker, httpapi.Config{
				Addr:              listen,
				RateLimitRPS:      app.cfg.RateLimitRPS,
				RateLimitBurst:    app.cfg.RateLimitBurst,
				TrustProxyHeaders: app.cfg.TrustProxy,
			}, registry, app.logger)

			app.logger.Info().
				Str("env", app.cfg.Env).
				Bool("production", app.cfg.production()).
				Str("workflow", app.broker.Config().WorkflowID).
				Msg("session broker configured")

			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", app.cfg.Listen, "Listen address")

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
