package models

import "errors"

// Error taxonomy for the segmentation pipeline. Only ErrVideoUnreadable is
// fatal to a run; everything else is recovered locally and surfaces as a
// Degradation on the result.
var (
	// ErrVideoUnreadable means the file is missing, corrupt, or its
	// duration cannot be probed. Surfaced to the caller.
	ErrVideoUnreadable = errors.New("video unreadable")

	// ErrToolUnavailable means the external ffmpeg/ffprobe binary is
	// missing or errored. Triggers fallback to the content detector.
	ErrToolUnavailable = errors.New("detection tool unavailable")

	// ErrDetectionTimeout means the external detection command exceeded
	// its hard timeout. Same fallback as ErrToolUnavailable.
	ErrDetectionTimeout = errors.New("detection timed out")

	// ErrNoBoundaries means a detector or scene source yielded no usable
	// cuts even after retry. The scene filter falls back to frame-diff
	// detection; a sceneless alignment input is rejected outright.
	ErrNoBoundaries = errors.New("no boundaries found")

	// ErrInvalidTimeRange marks a candidate shot/scene/segment with
	// start >= end. The candidate is dropped and logged.
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// IsFatal reports whether an error must abort the run rather than degrade.
func IsFatal(err error) bool {
	return errors.Is(err, ErrVideoUnreadable)
}
