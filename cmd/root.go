package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"adbforward/internal/app"
	"adbforward/pkg/logging"
)

// configPath points at a single configuration file, replacing the layered lookup.
var configPath string

// debug enables verbose logging across the application.
var debug bool

// logLevelName is the --log-level value; logLevel is what it resolved to.
var (
	logLevelName string
	logLevel     = logging.LevelInfo
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "adbforward",
	Short: "Forward ALVR ports to Quest headsets as they connect over adb",
	Long: `adbforward watches the adb server for devices. When a Quest headset
(monterey, hollywood or pacific by default) connects it forwards local
ports 9943 and 9944 to the headset and starts the ALVR client on it.
Other devices are reported and skipped.

If no adb server is running, adbforward downloads the Android platform-tools
next to its executable and starts one.

Configuration:
  Defaults are overlaid with ~/.config/adbforward/config.yaml and then
  ./.adbforward/config.yaml. Use --config to read a single file instead.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: initLogging,
	RunE:              runServe,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. unreachable adb server)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "adbforward version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

// initLogging makes logging usable for every subcommand. The service
// re-initializes it once its configuration is loaded.
func initLogging(cmd *cobra.Command, args []string) error {
	level, err := resolveLogLevel(logLevelName, debug)
	if err != nil {
		return err
	}
	logLevel = level
	logging.Init(level, cmd.ErrOrStderr())
	return nil
}

func resolveLogLevel(name string, debug bool) (logging.LogLevel, error) {
	if debug {
		return logging.LevelDebug, nil
	}
	level, ok := logging.ParseLevel(name)
	if !ok {
		return level, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
	return level, nil
}

// runServe runs the forwarding service until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, configPath)
	cfg.LogLevel = logLevel
	cfg.Console = cmd.OutOrStdout()

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newFetchToolsCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Read configuration from this file instead of the layered lookup")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevelName, "log-level", "info", "Log level: debug, info, warn or error")
}
