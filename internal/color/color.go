package color

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	ConnectedStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006400", Dark: "#2E8B57"})
	DisconnectedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#8B0000", Dark: "#CD5C5C"})
	SkippedStyle      = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD700"})
	ForwardedStyle    = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#008000", Dark: "#00FF7F"}).Bold(true)
	ErrorStyle        = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B22222", Dark: "#FF6347"}).Bold(true)
	OutputStyle       = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#A9A9A9"})
)

// Initialize selects the dark or light variant of every style.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)
}

// Console writes styled device status lines.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) println(style lipgloss.Style, format string, args ...interface{}) {
	line := style.Render(fmt.Sprintf(format, args...)) + "\n"
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, line)
}

// Connected announces a newly attached device.
func (c *Console) Connected(serial string) {
	c.println(ConnectedStyle, "Connected device: %s", serial)
}

// Disconnected announces a detached device.
func (c *Console) Disconnected(serial string) {
	c.println(DisconnectedStyle, "Disconnected device: %s", serial)
}

// Skipped reports a device that is not on the allow-list.
func (c *Console) Skipped(name string) {
	c.println(SkippedStyle, "Skipped forwarding device: %s", name)
}

// Forwarded reports a device whose forwards are installed.
func (c *Console) Forwarded(serial, product string) {
	c.println(ForwardedStyle, "Successfully forwarded device: %s [%s]", serial, product)
}

// Failed reports a device whose forwarding sequence failed.
func (c *Console) Failed(serial string, err error) {
	c.println(ErrorStyle, "Forwarding failed for %s: %v", serial, err)
}

// WriteLine prints one line of remote command output.
func (c *Console) WriteLine(line string) {
	c.println(OutputStyle, "%s", line)
}
