package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/power-sentinel/internal/config"
	"github.com/oshokin/power-sentinel/internal/service/monitor"
	"github.com/oshokin/power-sentinel/internal/version"
)

// errConfigExists is returned by init-config when the file is already there.
var errConfigExists = errors.New("configuration file already exists")

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// grpcAddress overrides the configured gRPC listen address.
	grpcAddress string
	// httpAddress overrides the configured HTTP listen address.
	httpAddress string
	// force allows init-config to overwrite an existing file.
	force bool

	// rootCmd represents the base command for running the sentinel daemon.
	rootCmd = &cobra.Command{
		Use:   "sentinel",
		Short: "Watch external power, UPS power and pressure and raise alarms.",
		Long: `Runs the power sentinel daemon.

Once per tick the daemon reads external power, UPS power and the pressure gauge,
evaluates the alarm condition against the pressure threshold and publishes a
notification when the notification gate allows it.

Remote callers read variables (power, upspower, pressure, status, armed, threshold)
and call commands (led, alarm, threshold, test) over gRPC and HTTP.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			return monitor.Run(ctx, &monitor.Options{
				ConfigPath:  configPath,
				LogLevel:    logLevel,
				GRPCAddress: grpcAddress,
				HTTPAddress: httpAddress,
			})
		},
	}

	// initConfigCmd writes a configuration file with default settings.
	initConfigCmd = &cobra.Command{
		Use:   "init-config",
		Short: "Write a configuration file with default settings.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !force {
				if _, err := os.Stat(configPath); err == nil {
					return fmt.Errorf("%w: %s, use --force to overwrite", errConfigExists, configPath)
				}
			}

			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration written to", configPath)

			return nil
		},
	}
)

// Execute runs the sentinel CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(initConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level override (debug, info, warn, error)")
	rootCmd.Flags().StringVar(&grpcAddress, "grpc-address", "", "gRPC control listen address override")
	rootCmd.Flags().StringVar(&httpAddress, "http-address", "", "HTTP control listen address override")

	initConfigCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
}
