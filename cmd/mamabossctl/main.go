package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mamaboss/internal/auth"
	"mamaboss/internal/cli"
	"mamaboss/internal/config"
	"mamaboss/internal/log"
	"mamaboss/internal/metrics"
	"mamaboss/internal/services"
	"mamaboss/internal/storage"
)

var (
	format   string
	quiet    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mamabossctl",
	Short: "Administer a MamaBoss data store",
	Long: `mamabossctl works directly on the store configured for the server
(DATA_BACKEND, DATA_DIR, DATABASE_URL...), reading the same environment and
.env file.

Examples:
  # List every registered account
  mamabossctl users list

  # Run the subscription renewal pass once
  mamabossctl renew run --format json

  # Export a user's finances for March to the spreadsheet
  mamabossctl finances export <user-id> --month 2025-03`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&format, "format", "f", formatTable, "Output format: table|json|yaml")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress table headers")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr")

	rootCmd.AddCommand(usersCmd(), subscriptionsCmd(), plansCmd(), renewCmd(), seedCmd(), financesCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app is the process state every command runs against.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	deps    services.Deps
	store   storage.Store
	modules *services.Modules
	auth    *auth.Service
	out     *printer
	cleanup func() error
}

// withApp opens the store, runs fn and closes the store again.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	out, err := newPrinter(format, quiet)
	if err != nil {
		return err
	}

	cli.LoadEnvFile()
	logger := log.New(log.Config{
		Level:     log.ParseLevel(logLevel),
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := cmd.Context()
	res := cli.OpenStore(ctx, logger, cfg)
	a := &app{
		cfg:     cfg,
		logger:  logger,
		store:   res.Store,
		out:     out,
		cleanup: res.Cleanup,
	}
	defer a.close()

	a.deps = cli.NewDeps(cfg, logger, res.Store, metrics.New())
	a.modules, err = cli.NewModules(cfg, a.deps, cli.NewPaymentGateway(cfg, logger), nil)
	if err != nil {
		return err
	}
	a.auth, err = cli.NewAuth(ctx, cfg, logger, res.Store)
	if err != nil {
		return err
	}
	return fn(ctx, a)
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Warn("Storage close error", log.FieldError, err)
	}
}

func (a *app) print(r result) error {
	return a.out.print(os.Stdout, r)
}
