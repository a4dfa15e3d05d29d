package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
)

// playbackPeriods is the device buffer depth in periods during playback.
const playbackPeriods = 2

// MalgoProvider implements Provider and Output on miniaudio.
type MalgoProvider struct {
	ctx    *malgo.AllocatedContext
	logger *slog.Logger

	readTimeout time.Duration
}

// NewMalgoProvider initialises a miniaudio context for backend.
func NewMalgoProvider(backend BackendType, logger *slog.Logger) (*MalgoProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, err := malgo.InitContext(backend.contextBackends(), malgo.ContextConfig{}, func(message string) {
		logger.Debug("miniaudio", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	logger.Debug("Audio context initialized", "backend", backend)
	return &MalgoProvider{ctx: ctx, logger: logger, readTimeout: defaultReadTimeout}, nil
}

// Devices lists the capture devices in the order used for device indices.
func (p *MalgoProvider) Devices() ([]DeviceInfo, error) {
	infos, err := p.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to get capture devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      infos[i].Name(),
			IsDefault: infos[i].IsDefault != 0,
		})
	}
	return devices, nil
}

// OpenInput starts a PCM16 capture stream. A negative device selects the
// system default input.
func (p *MalgoProvider) OpenInput(device, sampleRate, channels int) (InputStream, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	var infos []malgo.DeviceInfo
	if device >= 0 {
		var err error
		infos, err = p.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, fmt.Errorf("failed to get capture devices: %w", err)
		}
		if device >= len(infos) {
			return nil, fmt.Errorf("capture device %d not found (%d available)", device, len(infos))
		}
		deviceConfig.Capture.DeviceID = infos[device].ID.Pointer()
	}

	queue := newFrameQueue(defaultQueueDepth, p.readTimeout)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			queue.push(input)
		},
		Stop: queue.stop,
	}

	dev, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize capture device %d: %w", device, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return nil, fmt.Errorf("failed to start capture device %d: %w", device, err)
	}

	p.logger.Debug("Input stream opened", "device", device, "sample_rate", sampleRate, "channels", channels)
	return &malgoInput{device: dev, queue: queue, frameSize: channels * SampleWidth}, nil
}

// Play writes pcm to the default playback device and returns once the
// device has played every frame, or ctx is done.
func (p *MalgoProvider) Play(ctx context.Context, pcm []byte, sampleRate, channels int) error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.PeriodSizeInFrames = DefaultChunkSize
	deviceConfig.Periods = playbackPeriods
	deviceConfig.Alsa.NoMMap = 1

	cursor := newPlaybackCursor(pcm, playbackPeriods)
	finished := make(chan struct{})
	var once sync.Once
	callbacks := malgo.DeviceCallbacks{
		Data: func(output, _ []byte, _ uint32) {
			if cursor.fill(output) {
				once.Do(func() { close(finished) })
			}
		},
	}

	dev, err := malgo.InitDevice(p.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	defer func() { _ = dev.Stop() }()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("playback stopped: %w", ctx.Err())
	}
}

// Close releases the miniaudio context.
func (p *MalgoProvider) Close() error {
	err := p.ctx.Uninit()
	p.ctx.Free()
	if err != nil {
		return fmt.Errorf("failed to release audio context: %w", err)
	}
	return nil
}

type malgoInput struct {
	device    *malgo.Device
	queue     *frameQueue
	frameSize int

	closeOnce sync.Once
	closeErr  error
}

func (s *malgoInput) Read(frames int) ([]byte, error) {
	return s.queue.read(frames * s.frameSize)
}

func (s *malgoInput) Close() error {
	s.closeOnce.Do(func() {
		if err := s.device.Stop(); err != nil {
			s.closeErr = fmt.Errorf("failed to stop capture device: %w", err)
		}
		s.device.Uninit()
		s.queue.stop()
	})
	return s.closeErr
}
