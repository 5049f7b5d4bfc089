// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Carries the last input frame across calls so chunk boundaries stay continuous
package resample

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	step       float64 // input frames advanced per output frame

	// position of the next output frame, in input frames from prev
	position float64
	prev     []int32
	primed   bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	if channels < 1 {
		channels = 1
	}
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       float64(inputRate) / float64(outputRate),
		prev:       make([]int32, channels),
	}
}

// Resample interpolates interleaved input and appends the output frames to
// dst. All input is consumed; a trailing partial frame is ignored.
func (r *Resampler) Resample(input []int32, dst []int32) []int32 {
	inputFrames := len(input) / r.channels
	if inputFrames == 0 {
		return dst
	}

	// frame i of the virtual sequence: prev first when primed, then input
	offset := 0
	if r.primed {
		offset = 1
	}
	total := inputFrames + offset
	frame := func(i, ch int) int32 {
		if i < offset {
			return r.prev[ch]
		}
		return input[(i-offset)*r.channels+ch]
	}

	for {
		idx := int(r.position)
		if idx+1 >= total {
			break
		}
		frac := r.position - float64(idx)

		for ch := 0; ch < r.channels; ch++ {
			a := float64(frame(idx, ch))
			b := float64(frame(idx+1, ch))
			dst = append(dst, int32(a+(b-a)*frac))
		}
		r.position += r.step
	}

	// The last input frame becomes index 0 of the next call
	copy(r.prev, input[(inputFrames-1)*r.channels:inputFrames*r.channels])
	r.position -= float64(total - 1)
	r.primed = true

	return dst
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	clear(r.prev)
}

// InputRate returns the source sample rate
func (r *Resampler) InputRate() int { return r.inputRate }

// OutputRate returns the target sample rate
func (r *Resampler) OutputRate() int { return r.outputRate }

// OutputFramesFor estimates how many frames Resample produces for inputFrames
func (r *Resampler) OutputFramesFor(inputFrames int) int {
	return int(float64(inputFrames)/r.step) + 1
}
