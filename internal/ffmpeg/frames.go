package ffmpeg

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ExtractFrame extracts a single frame at the given timestamp as a JPEG file.
func (e *Executor) ExtractFrame(ctx context.Context, videoPath string, timestamp float64, outputPath string) error {
	_, _, err := e.runFFmpeg(ctx,
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outputPath,
	)
	if err != nil {
		return fmt.Errorf("frame extraction at %.3fs failed: %w", timestamp, err)
	}
	// ffmpeg exits zero on a seek past EOF without writing anything.
	if fi, statErr := os.Stat(outputPath); statErr != nil || fi.Size() == 0 {
		return fmt.Errorf("frame extraction at %.3fs produced no output", timestamp)
	}
	return nil
}

// DecodeFrame extracts a frame at the given timestamp and decodes it.
// The temp file is removed before returning.
func (e *Executor) DecodeFrame(ctx context.Context, videoPath string, timestamp float64) (image.Image, error) {
	tmp, err := os.CreateTemp(e.tempDir, "frame_*.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp frame file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := e.ExtractFrame(ctx, videoPath, timestamp, tmpPath); err != nil {
		return nil, err
	}
	return decodeImageFile(tmpPath)
}

// SampledFrame is one frame extracted on a uniform grid.
type SampledFrame struct {
	Timestamp float64
	Path      string
}

// SampleFrames extracts frames at a fixed interval into a fresh subdirectory
// of the executor's temp dir. The caller owns the directory and should remove
// it via Cleanup when done with the frames.
func (e *Executor) SampleFrames(ctx context.Context, videoPath string, interval float64) (dir string, frames []SampledFrame, err error) {
	if interval <= 0 {
		return "", nil, fmt.Errorf("sample interval must be > 0, got %g", interval)
	}

	dir, err = os.MkdirTemp(e.tempDir, "frames_")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create frame directory: %w", err)
	}

	pattern := filepath.Join(dir, "frame_%06d.jpg")
	_, _, err = e.runFFmpeg(ctx,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=1/%g", interval),
		"-q:v", "2",
		"-y",
		pattern,
	)
	if err != nil {
		e.Cleanup(dir)
		return "", nil, fmt.Errorf("frame sampling failed: %w", err)
	}

	paths, err := collectFramePaths(dir)
	if err != nil {
		e.Cleanup(dir)
		return "", nil, err
	}

	frames = make([]SampledFrame, len(paths))
	for i, p := range paths {
		frames[i] = SampledFrame{
			// ffmpeg's fps filter emits frame N at N*interval.
			Timestamp: float64(i) * interval,
			Path:      p,
		}
	}
	return dir, frames, nil
}

func collectFramePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".jpg") || strings.HasSuffix(entry.Name(), ".png") {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// DecodeImageFile decodes a single extracted frame from disk.
func DecodeImageFile(path string) (image.Image, error) {
	return decodeImageFile(path)
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	return img, nil
}
