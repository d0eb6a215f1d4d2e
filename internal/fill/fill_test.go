package fill

import "testing"

func TestStackGrows(t *testing.T) {
	var s Stack
	for i := 0; i < 1000; i++ {
		s.Push(i)
	}
	if s.Len() != 1000 {
		t.Fatalf("Expected 1000 items, got %d", s.Len())
	}
	if s.Cap() < 1000 || s.Cap() > 2048 {
		t.Errorf("Unexpected capacity %d after geometric growth", s.Cap())
	}
	for i := 999; i >= 0; i-- {
		if v := s.Pop(); v != i {
			t.Fatalf("Expected %d, got %d", i, v)
		}
	}
}

func TestRegionEightConnected(t *testing.T) {
	// Diagonal line of 4 pixels plus an unrelated pixel
	const w, h = 6, 6
	fg := make([]bool, w*h)
	for _, i := range []int{0, 7, 14, 21, 5} {
		fg[i] = true
	}
	labels := make([]uint32, w*h)

	var s Stack
	pixels := Region(w, h, 0, labels, func(i int) bool { return fg[i] }, &s, nil)
	if len(pixels) != 4 {
		t.Fatalf("Expected the diagonal run of 4 pixels, got %d", len(pixels))
	}
	for _, i := range pixels {
		if labels[i] != Queued {
			t.Errorf("Pixel %d should be queued, got %d", i, labels[i])
		}
	}

	Commit(labels, pixels, 3)
	for _, i := range pixels {
		if labels[i] != 3 {
			t.Errorf("Pixel %d should carry label 3", i)
		}
	}
	if labels[5] != 0 {
		t.Error("Unconnected pixel must stay unlabeled")
	}
}

func TestRegionLargeComponent(t *testing.T) {
	// A fully filled 300x300 region must not exhaust the call stack
	const w, h = 300, 300
	labels := make([]uint32, w*h)
	var s Stack
	pixels := Region(w, h, w*h/2, labels, func(int) bool { return true }, &s, nil)
	if len(pixels) != w*h {
		t.Errorf("Expected %d pixels, got %d", w*h, len(pixels))
	}
}
