package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"adbforward/internal/adb"
	"adbforward/internal/config"
	"adbforward/internal/device"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	allowedStyle = cellStyle.Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#00FF7F"})
)

var devicesShowForwards bool

func newDevicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List attached devices and whether they would be forwarded",
		Long: `Lists the devices the adb server currently knows about, with the product
each one reports and whether that product is on the allow-list.
With --forwards, the forwards held by the adb server are listed as well.`,
		Args: cobra.NoArgs,
		RunE: runDevices,
	}
	cmd.Flags().BoolVar(&devicesShowForwards, "forwards", false, "Also list active port forwards")
	return cmd
}

func runDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	allow, err := device.NewAllowList(cfg.AllowList)
	if err != nil {
		return err
	}

	client := adb.NewClient(cfg.ADB.Host, cfg.ADB.Port, cfg.CommandTimeout())
	devices, err := client.ListDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list devices from %s: %w", client.Addr(), err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderDevices(devices, allow))

	if devicesShowForwards {
		forwards, err := client.ListForwards(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list forwards: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderForwards(forwards))
	}
	return nil
}

func renderDevices(devices []adb.DeviceInfo, allow *device.AllowList) string {
	if len(devices) == 0 {
		return "No devices attached."
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		verdict := "no"
		if d.State == adb.StateDevice && allow.IsAllowed(d.Product) {
			verdict = "yes"
		}
		rows = append(rows, []string{d.Serial, d.State, dash(d.Product), dash(d.Model), verdict})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("SERIAL", "STATE", "PRODUCT", "MODEL", "FORWARD").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 4 && rows[row][4] == "yes":
				return allowedStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func renderForwards(forwards []adb.Forward) string {
	if len(forwards) == 0 {
		return "No active forwards."
	}
	var b strings.Builder
	for _, f := range forwards {
		fmt.Fprintf(&b, "%s %s -> %s\n", f.Serial, f.Local, f.Remote)
	}
	return strings.TrimRight(b.String(), "\n")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// loadConfig reads --config if given, otherwise the layered configuration.
func loadConfig() (config.AdbforwardConfig, error) {
	if configPath != "" {
		return config.LoadConfigFromPath(configPath)
	}
	return config.LoadConfig()
}
