package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"signagerec/internal/config"
	"signagerec/internal/contentprobe"
	"signagerec/internal/deps"
)

// DefaultSocketDir is where a local X server creates its listening sockets.
const DefaultSocketDir = "/tmp/.X11-unix"

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// DisplayNumber extracts the server number from an X display name such as
// ":99" or ":0.0". ok is false for remote displays.
func DisplayNumber(display string) (int, bool, error) {
	display = strings.TrimSpace(display)
	host, rest, found := strings.Cut(display, ":")
	if !found {
		return 0, false, fmt.Errorf("display %q has no ':'", display)
	}
	if host != "" && host != "unix" {
		return 0, false, nil
	}
	if screenSep := strings.IndexByte(rest, '.'); screenSep >= 0 {
		rest = rest[:screenSep]
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false, fmt.Errorf("display %q has an invalid server number", display)
	}
	return n, true, nil
}

// CheckDisplay verifies that a local X server is listening on display.
func CheckDisplay(name, display, socketDir string) Result {
	n, local, err := DisplayNumber(display)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if !local {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (remote display, not checked)", display)}
	}
	socket := filepath.Join(socketDir, "X"+strconv.Itoa(n))
	conn, err := net.DialTimeout("unix", socket, time.Second)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no X server at %s: %v)", display, socket, err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (listening)", display)}
}

// CheckSystemDeps evaluates the encoder, probe, and browser binaries for cfg.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(
		cfg.Capture.FFmpegBinary,
		cfg.Capture.FFprobeBinary,
		cfg.Browser.ExecPath,
		cfg.Capture.Verify,
	))
}

// CheckContent fetches the content source once. A page that only fills the
// duration field from script still passes since the browser will see it.
func CheckContent(ctx context.Context, prober *contentprobe.Prober, base string) Result {
	const name = "Content source"

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := prober.Probe(checkCtx, base)
	switch {
	case err == nil:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable, duration %ds", result.Seconds)}
	case errors.Is(err, contentprobe.ErrFieldMissing):
		return Result{Name: name, Passed: true, Detail: "reachable, duration field rendered by script"}
	default:
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
}

func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out"
	}
	var statusErr *contentprobe.HTTPStatusError
	if errors.As(err, &statusErr) {
		return fmt.Sprintf("unexpected status %d", statusErr.StatusCode)
	}
	return err.Error()
}
