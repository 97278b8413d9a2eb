// cmd/libradesk/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"libradesk/internal/client"
	"libradesk/internal/config"
	"libradesk/internal/telemetry"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

type app struct {
	envFiles []string
	url      string
	cfg      *config.Config
	logger   *slog.Logger
	stdout   io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	root := &cobra.Command{
		Use:          "libradesk",
		Short:        "Library front desk: catalog, members and circulation",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.envFiles...)
			if err != nil {
				return err
			}
			if a.url != "" {
				cfg.ServerURL = a.url
			}
			a.cfg = cfg
			a.logger = telemetry.NewLogger(stderr, cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(a.logger)
			return nil
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringSliceVar(&a.envFiles, "env-file", nil, "env files to load before reading the environment")
	root.PersistentFlags().StringVar(&a.url, "url", "", "server base URL for client commands (default $LIBRADESK_URL)")

	root.AddCommand(newServeCmd(a), newReportCmd(a), newDrillCmd(a))
	return root
}

func (a *app) client() *client.Client {
	return client.New(a.cfg.ServerURL, a.logger)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
