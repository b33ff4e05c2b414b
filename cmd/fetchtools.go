package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"adbforward/internal/bootstrap"
)

var fetchToolsStart bool

func newFetchToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch-tools",
		Short: "Download the Android platform-tools used to run adb",
		Long: `Downloads and unpacks the Android platform-tools for this platform into
the configured tools directory (next to the adbforward executable by default).
Nothing is downloaded when adb is already there. With --start, the adb server
is started afterwards.`,
		Args: cobra.NoArgs,
		RunE: runFetchTools,
	}
	cmd.Flags().BoolVar(&fetchToolsStart, "start", false, "Start the adb server after fetching")
	return cmd
}

func runFetchTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	base, err := bootstrap.ExecutableDir()
	if err != nil {
		return err
	}
	layout, err := bootstrap.Resolve(runtime.GOOS, base, cfg.ADB)
	if err != nil {
		return err
	}

	downloaded, err := bootstrap.EnsureTools(cmd.Context(), layout, bootstrap.NewHTTPClient())
	if err != nil {
		return err
	}
	if downloaded {
		fmt.Fprintf(cmd.OutOrStdout(), "Installed adb at %s\n", layout.ADBPath)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "adb already present at %s\n", layout.ADBPath)
	}

	if fetchToolsStart {
		return bootstrap.StartServer(cmd.Context(), layout.ADBPath)
	}
	return nil
}
