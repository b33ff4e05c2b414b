// Package bootstrap acquires the adb platform-tools and starts the adb server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/klauspost/compress/zip"

	"adbforward/internal/config"
	"adbforward/pkg/logging"
)

const subsystem = "Bootstrap"

// ErrUnsupportedPlatform is returned for operating systems without a
// published platform-tools build.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// For mocking in tests
var (
	osExecutable       = os.Executable
	execCommandContext = exec.CommandContext
)

// Layout is where the platform-tools live for one platform.
type Layout struct {
	Platform    string
	ToolsDir    string
	ADBPath     string
	ArchivePath string
	DownloadURL string
}

// platformNames maps GOOS to the platform-tools archive suffix.
var platformNames = map[string]string{
	"linux":   "linux",
	"windows": "windows",
	"darwin":  "darwin",
}

// Resolve computes the layout for goos. A relative settings.ToolsDir is taken
// relative to baseDir.
func Resolve(goos, baseDir string, settings config.ADBSettings) (Layout, error) {
	platform, ok := platformNames[goos]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}

	toolsDir := settings.ToolsDir
	if toolsDir == "" {
		toolsDir = "adb"
	}
	if !filepath.IsAbs(toolsDir) {
		toolsDir = filepath.Join(baseDir, toolsDir)
	}

	binary := "adb"
	if goos == "windows" {
		binary = "adb.exe"
	}

	url := settings.DownloadURL
	if url == "" {
		url = config.DefaultDownloadURL
	}

	return Layout{
		Platform:    platform,
		ToolsDir:    toolsDir,
		ADBPath:     filepath.Join(toolsDir, "platform-tools", binary),
		ArchivePath: filepath.Join(toolsDir, "platform-tools.zip"),
		DownloadURL: strings.ReplaceAll(url, "{platform}", platform),
	}, nil
}

// ExecutableDir returns the directory of the running binary.
func ExecutableDir() (string, error) {
	exe, err := osExecutable()
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable location: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}

// NewHTTPClient returns the retrying client used for downloads.
func NewHTTPClient() *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = leveledLogger{}
	return client
}

// EnsureTools downloads and unpacks platform-tools unless the adb binary is
// already present. It reports whether a download happened.
func EnsureTools(ctx context.Context, layout Layout, client *retryablehttp.Client) (bool, error) {
	if _, err := os.Stat(layout.ADBPath); err == nil {
		logging.Debug(subsystem, "Found adb at %s", layout.ADBPath)
		return false, nil
	}

	logging.Info(subsystem, "adb not found, downloading %s", layout.DownloadURL)
	if err := os.MkdirAll(layout.ToolsDir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create tools directory: %w", err)
	}

	if err := download(ctx, client, layout.DownloadURL, layout.ArchivePath); err != nil {
		return false, err
	}
	defer os.Remove(layout.ArchivePath)
	logging.Info(subsystem, "Download successful")

	if err := extractZip(layout.ArchivePath, layout.ToolsDir); err != nil {
		return false, err
	}
	logging.Info(subsystem, "Extraction successful")

	if _, err := os.Stat(layout.ADBPath); err != nil {
		return false, fmt.Errorf("archive did not contain %s: %w", layout.ADBPath, err)
	}
	if layout.Platform != "windows" {
		if err := makeExecutable(layout.ADBPath); err != nil {
			return false, err
		}
	}
	return true, nil
}

func download(ctx context.Context, client *retryablehttp.Client, url, dest string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: %s", url, resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return f.Close()
}

// extractZip unpacks archive into dest, refusing entries that would land
// outside dest.
func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive %s: %w", archive, err)
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("archive entry %q escapes %s", f.Name, dest)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func makeExecutable(path string) error {
	logging.Info(subsystem, "Giving adb executable permissions")
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if err := os.Chmod(path, info.Mode().Perm()|0o100); err != nil {
		return fmt.Errorf("failed to make %s executable: %w", path, err)
	}
	return nil
}

// StartServer runs "adb start-server", which is a no-op when a server is
// already listening.
func StartServer(ctx context.Context, adbPath string) error {
	logging.Info(subsystem, "Starting ADB Server...")
	cmd := execCommandContext(ctx, adbPath, "start-server")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("adb start-server failed: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	if s := strings.TrimSpace(string(out)); s != "" {
		logging.Debug(subsystem, "adb start-server: %s", s)
	}
	return nil
}

// leveledLogger routes retryablehttp's logs into pkg/logging.
type leveledLogger struct{}

func (leveledLogger) Error(msg string, kv ...interface{}) {
	logging.Error(subsystem, nil, "%s %v", msg, kv)
}
func (leveledLogger) Info(msg string, kv ...interface{})  { logging.Debug(subsystem, "%s %v", msg, kv) }
func (leveledLogger) Debug(msg string, kv ...interface{}) { logging.Debug(subsystem, "%s %v", msg, kv) }
func (leveledLogger) Warn(msg string, kv ...interface{})  { logging.Warn(subsystem, "%s %v", msg, kv) }
