package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	grpcapi "github.com/oshokin/power-sentinel/internal/api/grpc/control"
	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/control"
	"github.com/oshokin/power-sentinel/internal/service/ctl"
	"github.com/oshokin/power-sentinel/internal/version"
)

var (
	// options holds the connection flags shared by every subcommand.
	options = &ctl.Options{}
	// watchInterval is the polling interval of the watch subcommand.
	watchInterval time.Duration

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "sentinelctl",
		Short: "Query and control a running power sentinel.",
		Long: `Talks to the sentinel daemon over gRPC.

Read variables with "get", run commands with "call", print the full status
with "status" or follow it with "watch".`,
		SilenceUsage: true,
	}

	getCmd = &cobra.Command{
		Use:       "get <variable>",
		Short:     "Read one variable.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: control.VariableNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withController(cmd, func(ctx context.Context, c *ctl.Controller) error {
				return c.Get(ctx, args[0])
			})
		},
	}

	callCmd = &cobra.Command{
		Use:   "call <command> [argument]",
		Short: "Run one command: led on|off, alarm arm|disarm, threshold <mbar>, test.",
		Example: `  sentinelctl call alarm disarm
  sentinelctl call threshold 2600
  sentinelctl call test`,
		Args:      cobra.RangeArgs(1, 2), //nolint:mnd // Command plus optional argument.
		ValidArgs: control.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var argument string
			if len(args) > 1 {
				argument = args[1]
			}

			return withController(cmd, func(ctx context.Context, c *ctl.Controller) error {
				return c.Call(ctx, args[0], argument)
			})
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Print power, UPS, pressure, threshold and alarm state.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, func(ctx context.Context, c *ctl.Controller) error {
				return c.PrintStatus(ctx)
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print the status periodically until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withController(cmd, func(ctx context.Context, c *ctl.Controller) error {
				return c.Watch(ctx, watchInterval)
			})
		},
	}
)

// Execute runs the sentinelctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(getCmd, callCmd, statusCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withController connects to the daemon and runs fn with a signal-aware context.
func withController(cmd *cobra.Command, fn func(context.Context, *ctl.Controller) error) error {
	// Setup graceful shutdown handling.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	controller, closeConn, err := ctl.Connect(options, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	defer func() {
		_ = closeConn()
	}()

	return fn(ctx, controller)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&options.Address, "address", "a", config.DefaultGRPCAddress, "sentinel gRPC control address")
	flags.DurationVarP(&options.Timeout, "timeout", "t", grpcapi.DefaultCallTimeout, "per-call timeout")
	flags.BoolVarP(&options.Raw, "raw", "r", false, "print raw values and result codes")

	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", ctl.DefaultWatchInterval, "polling interval")
}
