package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestSegmentValidate(t *testing.T) {
	if err := (Segment{StartTime: 1, EndTime: 5}).Validate(); err != nil {
		t.Errorf("valid segment rejected: %v", err)
	}
	err := (Segment{StartTime: 5, EndTime: 5}).Validate()
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("empty segment: got %v, want ErrInvalidTimeRange", err)
	}
	err = (Segment{StartTime: 8, EndTime: 2}).Validate()
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Errorf("inverted segment: got %v, want ErrInvalidTimeRange", err)
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(fmt.Errorf("probe: %w", ErrVideoUnreadable)) {
		t.Error("wrapped ErrVideoUnreadable not fatal")
	}
	for _, err := range []error{ErrToolUnavailable, ErrDetectionTimeout, ErrNoBoundaries, ErrInvalidTimeRange} {
		if IsFatal(err) {
			t.Errorf("%v reported fatal", err)
		}
	}
}
