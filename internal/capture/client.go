package capture

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"signagerec/internal/config"
	"signagerec/internal/logging"
)

// ErrSpawn marks a failure to start the encoder process.
var ErrSpawn = errors.New("capture spawn failed")

// ErrInvalidDuration is returned when asked to record a non-positive length.
var ErrInvalidDuration = errors.New("capture duration must be positive")

// Result describes a finished encoder process.
type Result struct {
	Output    string
	Seconds   int
	ExitCode  int
	StartedAt time.Time
	EndedAt   time.Time
	// TimedOut is set when the safety ceiling terminated the encoder.
	TimedOut   bool
	StderrTail []string
}

// Elapsed returns the wall time the encoder ran.
func (r Result) Elapsed() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// Succeeded reports whether the encoder exited cleanly.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// Recorder is the behaviour the orchestrator depends on.
type Recorder interface {
	Record(ctx context.Context, seconds int, output string) (Result, error)
}

// Executor abstracts command execution for testability. A returned error that
// implements ExitCode() int is treated as a process exit, not a spawn failure.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, env []string, onStderr func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client wraps ffmpeg screen-grab invocations.
type Client struct {
	settings Settings
	grace    time.Duration
	exec     Executor
	logger   *slog.Logger
}

// New constructs a capture client.
func New(settings Settings, grace time.Duration, opts ...Option) (*Client, error) {
	settings.Binary = strings.TrimSpace(settings.Binary)
	if settings.Binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if strings.TrimSpace(settings.Display) == "" {
		return nil, errors.New("display required")
	}
	client := &Client{
		settings: settings,
		grace:    grace,
		exec:     commandExecutor{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "capture")
	return client, nil
}

// NewFromConfig constructs a client from configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	return New(Settings{
		Binary:      cfg.Capture.FFmpegBinary,
		Display:     cfg.Display.ID,
		Resolution:  cfg.Resolution(),
		Framerate:   cfg.Capture.Framerate,
		Codec:       cfg.Capture.Codec,
		PixelFormat: cfg.Capture.PixelFormat,
		LogLevel:    cfg.Capture.LogLevel,
	}, cfg.CaptureGrace(), opts...)
}

// Args exposes the argument list Record would use.
func (c *Client) Args(seconds int, output string) []string {
	return BuildArgs(c.settings, seconds, output)
}

// Record captures seconds of the display into output and waits for the
// encoder to exit.
func (c *Client) Record(ctx context.Context, seconds int, output string) (Result, error) {
	result := Result{Output: output, Seconds: seconds, ExitCode: -1}
	if seconds <= 0 {
		return result, fmt.Errorf("%w: %d", ErrInvalidDuration, seconds)
	}

	args := c.Args(seconds, output)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("capture started",
		logging.String("display", c.settings.Display),
		logging.Int("seconds", seconds),
		logging.String("output", output),
	)
	logger.Debug("ffmpeg command", logging.String("binary", c.settings.Binary), logging.String("args", strings.Join(args, " ")))

	runCtx := ctx
	var cancel context.CancelFunc
	if c.grace > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second+c.grace)
		defer cancel()
	}

	ring := newLineRing(stderrTailLines)
	env := []string{"DISPLAY=" + c.settings.Display}
	result.StartedAt = time.Now()
	err := c.exec.Run(runCtx, c.settings.Binary, args, env, func(line string) {
		ring.Add(line)
		logger.Debug("ffmpeg", logging.String("line", line))
	})
	result.EndedAt = time.Now()
	result.StderrTail = ring.Lines()

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}
	if errors.Is(err, ErrSpawn) {
		return result, err
	}
	if ctx.Err() != nil {
		return result, fmt.Errorf("capture interrupted: %w", ctx.Err())
	}

	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}
	if runCtx.Err() != nil {
		result.TimedOut = true
		logging.WarnWithHint(logger, "capture exceeded safety ceiling", "capture_timeout",
			"check that the X display is responsive",
			logging.Duration("ceiling", time.Duration(seconds)*time.Second+c.grace),
		)
	}
	return result, nil
}

const (
	interruptWait  = 10 * time.Second
	maxStderrToken = 1024 * 1024
)

// pumpStderr hands each stderr line to onStderr until r is exhausted. Progress
// stats end in \r, so both \r and \n terminate a line. After a scan error the
// rest is discarded so the encoder never blocks on a full pipe.
func pumpStderr(r io.Reader, onStderr func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStderrToken)
	scanner.Split(scanStderrLines)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" && onStderr != nil {
			onStderr(line)
		}
	}
	if scanner.Err() != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

func scanStderrLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, env []string, onStderr func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.Env = append(os.Environ(), env...)
	// ffmpeg finalizes the container on SIGINT; SIGKILL follows after WaitDelay.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptWait

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %w", ErrSpawn, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	pumpStderr(stderr, onStderr)

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait ffmpeg: %w", err)
	}
	return nil
}
