package ffmpeg

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

func TestNewReportsMissingTools(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := New(zerolog.Nop(), t.TempDir(), 0)
	if !errors.Is(err, models.ErrToolUnavailable) {
		t.Fatalf("New with empty PATH: got %v, want ErrToolUnavailable", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short, 10) = %q", got)
	}
	if got := truncate("abcdefgh", 4); got != "abcd..." {
		t.Errorf("truncate(abcdefgh, 4) = %q", got)
	}
}
