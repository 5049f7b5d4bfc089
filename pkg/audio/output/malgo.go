// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo; the device callback pulls frames from the session engine
package output

import (
	"fmt"
	"log"
	"sync"
	"unsafe"

	"github.com/gen2brain/malgo"
	"github.com/screamsink/screamsink/pkg/audio"
)

// MalgoConfig selects the device and sample format
type MalgoConfig struct {
	// DeviceName selects a playback device by exact name; empty uses the default
	DeviceName string

	// Format is the sample format the device is opened with
	Format SampleFormat

	// PeriodFrames overrides StreamConfig.PeriodFrames when non-zero
	PeriodFrames int
}

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	config   MalgoConfig
	malgoCtx *malgo.AllocatedContext
	mu       sync.Mutex
}

// NewMalgo creates a new Malgo output
func NewMalgo(config MalgoConfig) Output {
	return &Malgo{config: config}
}

// Name identifies the backend and device
func (m *Malgo) Name() string {
	if m.config.DeviceName == "" {
		return "malgo/default"
	}
	return "malgo/" + m.config.DeviceName
}

// Open initializes a playback device for one stream
func (m *Malgo) Open(config StreamConfig, src Filler) (Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureContext(); err != nil {
		return nil, err
	}

	format, err := malgoFormat(m.config.Format)
	if err != nil {
		return nil, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(config.Channels)
	deviceConfig.SampleRate = uint32(config.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	period := config.PeriodFrames
	if m.config.PeriodFrames > 0 {
		period = m.config.PeriodFrames
	}
	if period > 0 {
		deviceConfig.PeriodSizeInFrames = uint32(period)
	}

	if m.config.DeviceName != "" {
		id, err := m.findDevice(m.config.DeviceName)
		if err != nil {
			return nil, err
		}
		deviceConfig.Playback.DeviceID = id
	}

	stream := &malgoStream{
		src:      src,
		channels: config.Channels,
		format:   m.config.Format,
		scratch:  make([]audio.Frame, scratchFrames),
	}

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			stream.dataCallback(pOutputSample, frameCount)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	stream.device = device

	log.Printf("Audio output opened: %dHz, %d channels, %s (%s)",
		config.SampleRate, config.Channels, formatName(format), m.Name())

	return stream, nil
}

// ensureContext creates the malgo context on first use (must hold m.mu)
func (m *Malgo) ensureContext() error {
	if m.malgoCtx != nil {
		return nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	return nil
}

// findDevice looks up a playback device by exact name (must hold m.mu)
func (m *Malgo) findDevice(name string) (unsafe.Pointer, error) {
	infos, err := m.malgoCtx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}
	for _, info := range infos {
		if info.Name() == name {
			return info.ID.Pointer(), nil
		}
	}
	return nil, fmt.Errorf("could not find audio device %q", name)
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// ListMalgoDevices returns the names of the available playback devices
func ListMalgoDevices() ([]string, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate playback devices: %w", err)
	}

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	return names, nil
}

type malgoStream struct {
	device   *malgo.Device
	src      Filler
	channels int
	format   SampleFormat
	scratch  []audio.Frame
	once     sync.Once
}

// dataCallback is called by malgo to fill the audio output buffer
func (s *malgoStream) dataCallback(pOutput []byte, frameCount uint32) {
	frameSize := s.channels * s.format.BytesPerSample()
	fillChunked(s.src, s.scratch, int(frameCount), func(frames []audio.Frame, offset int) {
		EncodeFrames(pOutput[offset*frameSize:], frames, s.channels, s.format)
	})
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Close stops the device; Uninit waits for an in-flight callback to return
func (s *malgoStream) Close() error {
	s.once.Do(func() {
		if err := s.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		s.device.Uninit()
	})
	return nil
}

func malgoFormat(format SampleFormat) (malgo.FormatType, error) {
	switch format {
	case FormatF32:
		return malgo.FormatF32, nil
	case FormatS16:
		return malgo.FormatS16, nil
	case FormatS24:
		return malgo.FormatS24, nil
	case FormatS32:
		return malgo.FormatS32, nil
	case FormatU8:
		return malgo.FormatU8, nil
	default:
		return malgo.FormatUnknown, fmt.Errorf("%w: sample format %s", ErrNotSupported, format)
	}
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
