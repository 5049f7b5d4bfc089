// ABOUTME: Output mode state machine for rate adaptation
// ABOUTME: Decides per frame whether to play, stretch, compress or hold based on buffer occupancy
package playback

import (
	"errors"
	"fmt"
)

// OutputMode is the playback strategy for the next frame
type OutputMode int32

const (
	// Stopped holds the last frame and leaves the buffer untouched
	Stopped OutputMode = iota
	// ChuggingAlong plays one buffered frame per output frame
	ChuggingAlong
	// PlaySlower repeats every other frame to let the buffer fill
	PlaySlower
	// PlayFaster skips a frame per output frame to drain the buffer
	PlayFaster
)

func (m OutputMode) String() string {
	switch m {
	case Stopped:
		return "Stopped"
	case ChuggingAlong:
		return "ChuggingAlong"
	case PlaySlower:
		return "PlaySlower"
	case PlayFaster:
		return "PlayFaster"
	default:
		return fmt.Sprintf("OutputMode(%d)", int32(m))
	}
}

// Thresholds are ratios of buffered frames to requested frames
type Thresholds struct {
	// Slower: below requested*Slower the engine stretches playback
	Slower float64
	// Faster: above requested*Faster the engine compresses playback
	Faster float64
	// Normal: within (requested/Normal, requested*Normal) playback returns to 1:1
	Normal float64
}

// DefaultThresholds returns the standard adaptation band
func DefaultThresholds() Thresholds {
	return Thresholds{
		Slower: 0.5,
		Faster: 2.0,
		Normal: 1.1,
	}
}

// withDefaults fills zero fields from DefaultThresholds
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.Slower == 0 {
		t.Slower = d.Slower
	}
	if t.Faster == 0 {
		t.Faster = d.Faster
	}
	if t.Normal == 0 {
		t.Normal = d.Normal
	}
	return t
}

// Validate checks that the band is ordered Slower < 1 < Normal < Faster
func (t Thresholds) Validate() error {
	if t.Slower <= 0 || t.Slower >= 1 {
		return errors.New("slower threshold must be in (0, 1)")
	}
	if t.Normal <= 1 {
		return errors.New("normal threshold must be greater than 1")
	}
	if t.Faster <= t.Normal {
		return errors.New("faster threshold must be greater than normal threshold")
	}
	return nil
}

// NextMode resolves the output mode for one frame. Inside the band between
// the slower/faster thresholds and outside the normal band the current mode
// is kept, so playback does not oscillate at a boundary.
func NextMode(current OutputMode, requested, available int, t Thresholds) OutputMode {
	if available == 0 {
		return Stopped
	}

	if current == Stopped && available > requested {
		return ChuggingAlong
	}

	req := float64(requested)
	avail := float64(available)

	if avail < req*t.Slower {
		return PlaySlower
	}

	if avail > req*t.Faster {
		return PlayFaster
	}

	if req/t.Normal < avail && avail < req*t.Normal {
		return ChuggingAlong
	}

	return current
}
