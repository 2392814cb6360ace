package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sceneforge/sceneworker/internal/models"
)

// VideoInfo holds the stream properties the pipeline cares about.
type VideoInfo struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Codec    string
	Format   string
}

// Probe validates a video and returns its properties. Any probe failure is
// wrapped in ErrVideoUnreadable: if ffprobe cannot open the file, nothing
// downstream can either.
func (e *Executor) Probe(ctx context.Context, videoPath string) (*VideoInfo, error) {
	output, err := e.runFFprobe(ctx,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrVideoUnreadable, videoPath, err)
	}

	var probe struct {
		Streams []struct {
			CodecType  string `json:"codec_type"`
			CodecName  string `json:"codec_name"`
			Width      int    `json:"width"`
			Height     int    `json:"height"`
			RFrameRate string `json:"r_frame_rate"`
			Duration   string `json:"duration"`
		} `json:"streams"`
		Format struct {
			Duration   string `json:"duration"`
			FormatName string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", models.ErrVideoUnreadable, err)
	}

	info := &VideoInfo{Format: probe.Format.FormatName}

	if probe.Format.Duration != "" {
		if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
			info.Duration = d
		}
	}

	for _, stream := range probe.Streams {
		if stream.CodecType != "video" {
			continue
		}
		info.Width = stream.Width
		info.Height = stream.Height
		info.Codec = stream.CodecName
		info.FPS = parseFrameRate(stream.RFrameRate)
		if info.Duration == 0 && stream.Duration != "" {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				info.Duration = d
			}
		}
		break
	}

	if info.Codec == "" {
		return nil, fmt.Errorf("%w: no video stream in %s", models.ErrVideoUnreadable, videoPath)
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("%w: could not determine duration of %s", models.ErrVideoUnreadable, videoPath)
	}
	return info, nil
}

// parseFrameRate parses an ffprobe rational like "30000/1001".
func parseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) == 2 {
		num, err1 := strconv.ParseFloat(parts[0], 64)
		den, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 == nil && err2 == nil && den > 0 {
			return num / den
		}
	}
	rate, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return rate
}
