package align

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/sceneforge/sceneworker/internal/models"
)

func newAligner() *Aligner {
	return New(2.0, 0.5, zerolog.Nop())
}

func TestAlignSnapsBothEdges(t *testing.T) {
	scenes := []models.Scene{
		{StartTime: 0, EndTime: 12.0},
		{StartTime: 12.0, EndTime: 19.0},
		{StartTime: 19.0, EndTime: 30.0},
	}
	a := newAligner()
	got := a.AlignAll([]models.Segment{{StartTime: 12.3, EndTime: 18.7}}, scenes)
	if len(got) != 1 {
		t.Fatalf("got %d segments, want 1", len(got))
	}
	seg := got[0]
	if seg.AlignedStart != 12.0 || seg.AlignedEnd != 19.0 {
		t.Errorf("aligned to [%g,%g], want [12,19]", seg.AlignedStart, seg.AlignedEnd)
	}
	if !seg.SceneAligned {
		t.Error("SceneAligned = false, want true")
	}
	// Original times survive on the embedded segment.
	if seg.StartTime != 12.3 || seg.EndTime != 18.7 {
		t.Errorf("original range mutated: [%g,%g]", seg.StartTime, seg.EndTime)
	}
}

func TestAlignKeepsDistantEdge(t *testing.T) {
	boundaries := []float64{0, 10.0, 50.0}
	if got, ok := nearestBoundary(25.0, boundaries, 2.0); got != 25.0 || ok {
		t.Errorf("nearestBoundary(25) = %g,%v, want 25,false (no boundary in reach)", got, ok)
	}
	if got, ok := nearestBoundary(11.5, boundaries, 2.0); got != 10.0 || !ok {
		t.Errorf("nearestBoundary(11.5) = %g,%v, want 10,true", got, ok)
	}
}

func TestAlignGridSnapsUnreachedEdges(t *testing.T) {
	// Start reaches the boundary at 25.0; the end is out of reach of every
	// boundary and lands on the 0.5s grid instead.
	scenes := []models.Scene{{StartTime: 0, EndTime: 25.0}, {StartTime: 25.0, EndTime: 50.0}}
	a := newAligner()
	seg := a.Align(models.Segment{StartTime: 25.3, EndTime: 27.7}, BoundarySet(scenes))
	if seg.AlignedStart != 25.0 {
		t.Errorf("start = %g, want 25.0 (scene boundary)", seg.AlignedStart)
	}
	if seg.AlignedEnd != 28.0 {
		t.Errorf("end = %g, want 28.0 (ceil to keyframe grid)", seg.AlignedEnd)
	}
	if !seg.SceneAligned {
		t.Error("SceneAligned = false, want true")
	}
}

func TestAlignRevertsDegenerateSnap(t *testing.T) {
	// Both edges snap to the same boundary at 10.0.
	scenes := []models.Scene{{StartTime: 0, EndTime: 10.0}, {StartTime: 10.0, EndTime: 30.0}}
	a := newAligner()
	seg := a.Align(models.Segment{StartTime: 9.5, EndTime: 10.5}, BoundarySet(scenes))
	if seg.SceneAligned {
		t.Error("SceneAligned = true for degenerate snap, want false")
	}
	if seg.AlignedStart != 9.5 || seg.AlignedEnd != 10.5 {
		t.Errorf("aligned range [%g,%g], want original [9.5,10.5]", seg.AlignedStart, seg.AlignedEnd)
	}
	if seg.AlignedStart >= seg.AlignedEnd {
		t.Error("aligned range inverted")
	}
}

func TestAlignAllDropsInvalidSegments(t *testing.T) {
	scenes := []models.Scene{{StartTime: 0, EndTime: 10.0}}
	a := newAligner()
	got := a.AlignAll([]models.Segment{
		{StartTime: 5.0, EndTime: 5.0},
		{StartTime: 8.0, EndTime: 2.0},
		{StartTime: 1.0, EndTime: 9.0},
	}, scenes)
	if len(got) != 1 {
		t.Fatalf("got %d segments, want 1", len(got))
	}
}

func TestAlignEmptyBoundaries(t *testing.T) {
	a := newAligner()
	seg := a.Align(models.Segment{StartTime: 3.0, EndTime: 7.0}, nil)
	if seg.AlignedStart != 3.0 || seg.AlignedEnd != 7.0 {
		t.Errorf("aligned range [%g,%g], want [3,7]", seg.AlignedStart, seg.AlignedEnd)
	}
	if !seg.SceneAligned {
		t.Error("SceneAligned = false; an untouched valid range still counts")
	}
}

func TestBoundarySet(t *testing.T) {
	scenes := []models.Scene{
		{StartTime: 0, EndTime: 5.0},
		{StartTime: 5.0, EndTime: 12.0},
	}
	got := BoundarySet(scenes)
	want := []float64{0, 5.0, 12.0}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("boundary[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestSnapToKeyframes(t *testing.T) {
	a := newAligner()

	start, end := a.SnapToKeyframes(12.3, 18.7)
	if start != 12.0 {
		t.Errorf("start snapped to %g, want 12.0 (floor to 0.5s grid)", start)
	}
	if end != 19.0 {
		t.Errorf("end snapped to %g, want 19.0 (ceil to 0.5s grid)", end)
	}

	// Edges already on the grid stay put.
	start, end = a.SnapToKeyframes(2.0, 4.5)
	if start != 2.0 || end != 4.5 {
		t.Errorf("on-grid range moved to [%g,%g]", start, end)
	}

	// Start never goes negative.
	start, _ = a.SnapToKeyframes(0.2, 5.0)
	if start != 0 {
		t.Errorf("start = %g, want 0", start)
	}
}

func TestSnapToKeyframesShiftCap(t *testing.T) {
	// A coarse grid would move edges more than a second; they stay put.
	a := New(2.0, 3.0, zerolog.Nop())
	start, end := a.SnapToKeyframes(4.5, 7.5)
	if start != 4.5 {
		t.Errorf("start = %g, want 4.5 (shift capped)", start)
	}
	if end != 7.5 {
		t.Errorf("end = %g, want 7.5 (shift capped)", end)
	}
}
