// ABOUTME: Tests for sender audio sources
// ABOUTME: Covers the test tone, source selection and bit depth scaling
package sender

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToneSourceDefaults(t *testing.T) {
	s := NewToneSource(ToneConfig{})

	if s.SampleRate() != 48000 || s.Channels() != 2 {
		t.Errorf("unexpected format: %dHz %dch", s.SampleRate(), s.Channels())
	}
	if s.Title() != "Test Tone (440Hz)" {
		t.Errorf("unexpected title: %q", s.Title())
	}
}

func TestToneSourceRead(t *testing.T) {
	s := NewToneSource(ToneConfig{Frequency: 1000, SampleRate: 48000, Channels: 2, Volume: 1})

	samples := make([]int32, 97)
	n, err := s.Read(samples)
	if err != nil {
		t.Fatal(err)
	}
	if n != 96 {
		t.Fatalf("expected 96 samples (48 whole frames), got %d", n)
	}

	if samples[0] != 0 {
		t.Errorf("expected sine to start at zero, got %d", samples[0])
	}
	var peak int32
	for i := 0; i < n; i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d: channels differ: %d vs %d", i/2, samples[i], samples[i+1])
		}
		if samples[i] > peak {
			peak = samples[i]
		}
		if samples[i] > 8388607 || samples[i] < -8388608 {
			t.Fatalf("sample %d out of 24-bit range: %d", i, samples[i])
		}
	}
	// 48 frames cover one full 1kHz period at 48kHz
	if peak < 8388000 {
		t.Errorf("expected near full-scale peak, got %d", peak)
	}

	// phase continues across reads
	s2 := NewToneSource(ToneConfig{Frequency: 1000, SampleRate: 48000, Channels: 1, Volume: 1})
	a := make([]int32, 10)
	b := make([]int32, 10)
	s2.Read(a)
	s2.Read(b)
	if b[0] == a[0] {
		t.Error("expected second read to continue the waveform")
	}
}

func TestScaleTo24(t *testing.T) {
	tests := []struct {
		sample   int32
		bitDepth int
		want     int32
	}{
		{32767, 16, 32767 << 8},
		{-32768, 16, -32768 << 8},
		{8388607, 24, 8388607},
		{1 << 30, 32, 1 << 22},
		{100, 20, 1600},
	}

	for _, tt := range tests {
		if got := scaleTo24(tt.sample, tt.bitDepth); got != tt.want {
			t.Errorf("scaleTo24(%d, %d) = %d, want %d", tt.sample, tt.bitDepth, got, tt.want)
		}
	}
}

func TestNewSource(t *testing.T) {
	s, err := NewSource("", ToneConfig{Frequency: 220})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*ToneSource); !ok {
		t.Errorf("expected tone source, got %T", s)
	}

	if _, err := NewSource(filepath.Join(t.TempDir(), "missing.mp3"), ToneConfig{}); err == nil {
		t.Error("expected error for missing file")
	}

	wav := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSource(wav, ToneConfig{}); err == nil {
		t.Error("expected error for unsupported extension")
	}

	bad := filepath.Join(t.TempDir(), "broken.flac")
	if err := os.WriteFile(bad, []byte("not a flac file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSource(bad, ToneConfig{}); err == nil {
		t.Error("expected error for invalid FLAC data")
	}
}

func TestTitleFromPath(t *testing.T) {
	if got := titleFromPath("/music/Some Song.flac"); got != "Some Song" {
		t.Errorf("unexpected title: %q", got)
	}
}
