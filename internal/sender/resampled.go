// ABOUTME: Sample rate conversion wrapper for sender sources
// ABOUTME: Lets sources at rates the Scream header cannot express be streamed
package sender

import (
	"fmt"

	"github.com/screamsink/screamsink/pkg/audio/resample"
)

// resampleChunkFrames is how many source frames are converted per step
const resampleChunkFrames = 1024

// ResampledSource converts another source to a fixed sample rate
type ResampledSource struct {
	src       Source
	resampler *resample.Resampler
	in        []int32
	pending   []int32
}

// NewResampledSource wraps src so it reads at sampleRate
func NewResampledSource(src Source, sampleRate int) *ResampledSource {
	channels := src.Channels()
	return &ResampledSource{
		src:       src,
		resampler: resample.New(src.SampleRate(), sampleRate, channels),
		in:        make([]int32, resampleChunkFrames*channels),
	}
}

func (s *ResampledSource) Read(samples []int32) (int, error) {
	for len(s.pending) < len(samples) {
		n, err := s.src.Read(s.in)
		if err != nil {
			return 0, err
		}
		if n == 0 {
			break
		}
		s.pending = s.resampler.Resample(s.in[:n], s.pending)
	}

	n := copy(samples, s.pending)
	remaining := copy(s.pending, s.pending[n:])
	s.pending = s.pending[:remaining]
	return n, nil
}

func (s *ResampledSource) SampleRate() int { return s.resampler.OutputRate() }
func (s *ResampledSource) Channels() int   { return s.src.Channels() }
func (s *ResampledSource) Title() string {
	return fmt.Sprintf("%s (%dHz -> %dHz)", s.src.Title(), s.resampler.InputRate(), s.resampler.OutputRate())
}
func (s *ResampledSource) Close() error { return s.src.Close() }
