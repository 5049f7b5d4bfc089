// ABOUTME: Tests for the streaming resampler
// ABOUTME: Checks rate ratios, interpolation and chunk continuity
package resample

import "testing"

func TestResampleIdentity(t *testing.T) {
	r := New(48000, 48000, 1)

	out := r.Resample([]int32{1, 2, 3, 4}, nil)
	out = r.Resample([]int32{5, 6}, out)

	want := []int32{1, 2, 3, 4, 5}
	if len(out) != len(want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, out)
		}
	}
}

func TestResampleUpsampleInterpolates(t *testing.T) {
	r := New(24000, 48000, 1)

	out := r.Resample([]int32{0, 100, 200}, nil)

	want := []int32{0, 50, 100, 150}
	if len(out) != len(want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("frame %d: expected %d, got %d", i, want[i], out[i])
		}
	}
}

func TestResampleDownsample(t *testing.T) {
	r := New(96000, 48000, 2)

	in := []int32{0, 0, 10, -10, 20, -20, 30, -30, 40, -40}
	out := r.Resample(in, nil)

	want := []int32{0, 0, 20, -20}
	if len(out) != len(want) {
		t.Fatalf("expected %v, got %v", want, out)
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("sample %d: expected %d, got %d", i, want[i], out[i])
		}
	}
}

func TestResampleChunkedMatchesWhole(t *testing.T) {
	in := make([]int32, 441)
	for i := range in {
		in[i] = int32(i * 1000)
	}

	whole := New(44100, 48000, 1).Resample(in, nil)

	r := New(44100, 48000, 1)
	var chunked []int32
	for start := 0; start < len(in); start += 37 {
		end := start + 37
		if end > len(in) {
			end = len(in)
		}
		chunked = r.Resample(in[start:end], chunked)
	}

	if len(chunked) != len(whole) {
		t.Fatalf("expected %d frames, got %d", len(whole), len(chunked))
	}
	for i := range whole {
		diff := whole[i] - chunked[i]
		if diff < -1 || diff > 1 {
			t.Fatalf("frame %d: whole %d, chunked %d", i, whole[i], chunked[i])
		}
	}
}

func TestResampleRatio(t *testing.T) {
	r := New(22050, 48000, 2)
	in := make([]int32, 22050*2)

	out := r.Resample(in, nil)
	frames := len(out) / 2

	if frames < 47990 || frames > 48000 {
		t.Errorf("expected about 48000 frames, got %d", frames)
	}
	if frames > r.OutputFramesFor(22050) {
		t.Errorf("estimate %d below actual %d", r.OutputFramesFor(22050), frames)
	}
}

func TestResampleReset(t *testing.T) {
	r := New(24000, 48000, 1)
	r.Resample([]int32{100, 200}, nil)
	r.Reset()

	out := r.Resample([]int32{0, 10}, nil)
	if len(out) != 2 || out[0] != 0 || out[1] != 5 {
		t.Errorf("expected fresh start [0 5], got %v", out)
	}
	if r.InputRate() != 24000 || r.OutputRate() != 48000 {
		t.Errorf("unexpected rates: %d -> %d", r.InputRate(), r.OutputRate())
	}
}
