package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/chatkit-broker/internal/adapters/httpapi"
	"github.com/bnema/chatkit-broker/internal/adapters/render/status"
	"github.com/bnema/chatkit-broker/internal/adapters/sessionclient"
	"github.com/bnema/chatkit-broker/internal/application"
	"github.com/bnema/chatkit-broker/internal/widget"
	"github.com/spf13/cobra"
)

func newMountCmd(app *app) *cobra.Command {
	var endpoint string
	var scriptURL string
	var elementID string
	var timeout time.Duration
	var keep bool

	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Mount the ChatKit widget headlessly against a session endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			page := widget.NewPage()
			loader := widget.NewLoader(page, scriptFetcher(), scriptURL, app.logger).WithTimeout(timeout)
			panel := application.NewChatPanel(loader, sessionclient.NewClient(endpoint, nil), application.PanelConfig{
				ElementID:    elementID,
				CycleTimeout: timeout,
				Production:   app.cfg.production(),
			}, app.logger)

			done := panel.Start(ctx, app.devConfig.Load(ctx))
			if err := runMountSpinner(ctx, cmd.ErrOrStderr(), done, panel.State, timeout); err != nil {
				panel.Unmount()
				return err
			}

			rendered, err := status.Render(status.Report{
				State:                panel.State(),
				ElementID:            elementID,
				Err:                  panel.Err(),
				NeedsDeveloperConfig: panel.NeedsDeveloperConfig(),
				SecretEnv:            serverSecretEnv,
			})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, rendered); err != nil {
				return err
			}

			if panel.State() != application.PanelMounted {
				return panel.Err()
			}
			if keep {
				waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				<-waitCtx.Done()
			}
			panel.Unmount()
			return nil
		},
	}

	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint(app.cfg.Listen), "Session endpoint URL")
	cmd.Flags().StringVar(&scriptURL, "script-url", app.cfg.WidgetScriptURL, "Widget script URL (http(s):// or file://)")
	cmd.Flags().StringVar(&elementID, "element", application.DefaultPanelElementID, "Container element id")
	cmd.Flags().DurationVar(&timeout, "timeout", application.DefaultCycleTimeout, "Timeout for one mount cycle")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the widget mounted until interrupted")

	return cmd
}

func defaultEndpoint(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host + httpapi.SessionAliasPath
}

// scriptFetcher serves file:// URLs from disk and everything else over HTTP.
func scriptFetcher() widget.Fetcher {
	httpFetcher := widget.NewHTTPFetcher(nil)
	return widget.FetcherFunc(func(ctx context.Context, raw string) ([]byte, error) {
		parsed, err := url.Parse(raw)
		if err == nil && parsed.Scheme == "file" {
			return os.ReadFile(parsed.Path)
		}
		return httpFetcher.Fetch(ctx, raw)
	})
}
