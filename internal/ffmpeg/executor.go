package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

// Executor runs ffmpeg and ffprobe subprocesses. Paths are resolved once at
// construction so a missing tool surfaces at startup, not mid-job.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	tempDir     string
	timeout     time.Duration
}

// New creates an executor, verifying both tools are installed.
func New(logger zerolog.Logger, tempDir string, timeout time.Duration) (*Executor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", models.ErrToolUnavailable)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe not found in PATH", models.ErrToolUnavailable)
	}

	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	if timeout <= 0 {
		timeout = 300 * time.Second
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		tempDir:     tempDir,
		timeout:     timeout,
	}, nil
}

// TempDir returns the executor's scratch directory.
func (e *Executor) TempDir() string {
	return e.tempDir
}

// run executes a tool with the configured timeout, returning stdout and
// stderr separately. A non-zero exit is returned as an error with stderr
// attached; a deadline hit maps to ErrDetectionTimeout.
func (e *Executor) run(ctx context.Context, tool string, args []string) (stdout, stderr []byte, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.logger.Debug().Str("tool", tool).Strs("args", args).Msg("executing")

	cmd := exec.CommandContext(ctx, tool, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	if runErr != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return outBuf.Bytes(), errBuf.Bytes(),
				fmt.Errorf("%w: %s exceeded %s", models.ErrDetectionTimeout, tool, e.timeout)
		}
		return outBuf.Bytes(), errBuf.Bytes(),
			fmt.Errorf("%s failed: %w: %s", tool, runErr, truncate(errBuf.String(), 512))
	}
	return outBuf.Bytes(), errBuf.Bytes(), nil
}

func (e *Executor) runFFmpeg(ctx context.Context, args ...string) (stdout, stderr []byte, err error) {
	return e.run(ctx, e.ffmpegPath, args)
}

func (e *Executor) runFFprobe(ctx context.Context, args ...string) ([]byte, error) {
	stdout, _, err := e.run(ctx, e.ffprobePath, args)
	return stdout, err
}

// Cleanup removes temporary files and directories.
func (e *Executor) Cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn().Str("path", path).Err(err).Msg("cleanup failed")
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
