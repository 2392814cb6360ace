// Package fetch materializes remote video sources into local temp files
// so the rest of the pipeline only ever sees a path on disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	maxRedirects     = 10
	defaultRetries   = 3
	defaultBackoff   = 2 * time.Second
	defaultTimeout   = 5 * time.Minute
	defaultSizeCap   = 5 << 30
	defaultUserAgent = "sceneworker/1.0"
)

// Fetcher downloads videos over HTTP with bounded retries. Responses
// that fail validation (wrong content type, oversized body, 4xx) are
// not retried; network errors and 5xx responses are.
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	sizeCap int64
	tempDir string
	logger  zerolog.Logger
}

func New(tempDir string, logger zerolog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		retries: defaultRetries,
		backoff: defaultBackoff,
		sizeCap: defaultSizeCap,
		tempDir: tempDir,
		logger:  logger,
	}
}

// IsRemote reports whether a job's video path needs downloading first.
func IsRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}

// Fetch downloads url into the temp directory and returns the local path.
// The caller owns the file and should remove it when done.
func (f *Fetcher) Fetch(ctx context.Context, url, jobID string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		path, err := f.attempt(ctx, url, jobID)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if !retryable(err) {
			return "", fmt.Errorf("fetch %s: %w", url, err)
		}
		f.logger.Warn().
			Str("job_id", jobID).
			Int("attempt", attempt).
			Err(err).
			Msg("download attempt failed")
		if attempt < f.retries {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(f.backoff * time.Duration(attempt)):
			}
		}
	}
	return "", fmt.Errorf("fetch %s: giving up after %d attempts: %w", url, f.retries, lastErr)
}

func (f *Fetcher) attempt(ctx context.Context, url, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{code: resp.StatusCode, status: resp.Status}
	}
	if ct := resp.Header.Get("Content-Type"); !acceptableContentType(ct) {
		return "", &rejectError{reason: fmt.Sprintf("unsupported content type %q", ct)}
	}
	if resp.ContentLength > f.sizeCap {
		return "", &rejectError{reason: fmt.Sprintf("content length %d exceeds cap %d", resp.ContentLength, f.sizeCap)}
	}

	if err := os.MkdirAll(f.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	out, err := os.CreateTemp(f.tempDir, fmt.Sprintf("sceneworker-%s-*.video", jobID))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	written, err := io.Copy(out, io.LimitReader(resp.Body, f.sizeCap+1))
	if err == nil && written > f.sizeCap {
		err = &rejectError{reason: fmt.Sprintf("body exceeds cap %d", f.sizeCap)}
	}
	if err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return out.Name(), nil
}

// Remove deletes a fetched file, refusing paths outside the temp dir.
func (f *Fetcher) Remove(path string) error {
	if path == "" {
		return nil
	}
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(f.tempDir)) {
		return fmt.Errorf("refusing to remove %s outside %s", path, f.tempDir)
	}
	return os.Remove(path)
}

// Empty content types pass; some origins omit the header entirely.
func acceptableContentType(ct string) bool {
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "application/octet-stream")
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return "unexpected response: " + e.status }

type rejectError struct {
	reason string
}

func (e *rejectError) Error() string { return e.reason }

func retryable(err error) bool {
	var reject *rejectError
	if errors.As(err, &reject) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.code >= 500
	}
	return true
}
