package speech

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.Microphone = (*Microphone)(nil)

// openFunc opens and starts a capture stream feeding onData, and returns
// the func that closes it.
type openFunc func(onData func(raw []byte)) (func(), error)

// Microphone checks access to the default capture device through
// miniaudio. Acquire opens the device briefly and closes it again
// before returning, so the whisper recorder is the only stream
// holding the device while listening. The grant it hands out is
// therefore a verified permission, not an open stream.
type Microphone struct {
	log  *logger.Logger
	hold time.Duration
	open openFunc
}

// MicOption configures the Microphone.
type MicOption func(*Microphone)

// WithCheckDuration sets how long the capture device is held open while
// checking access.
func WithCheckDuration(d time.Duration) MicOption {
	return func(m *Microphone) { m.hold = d }
}

// NewMicrophone creates a microphone grant source.
func NewMicrophone(log *logger.Logger, opts ...MicOption) *Microphone {
	m := &Microphone{
		log:  log,
		hold: 100 * time.Millisecond,
		open: openCapture,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire verifies the capture device can be opened and started. Any
// failure is reported as ErrPermissionDenied. The device is closed again
// before Acquire returns; the release func only ends the grant and is
// idempotent.
func (m *Microphone) Acquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var peak atomic.Int32
	closeDevice, err := m.open(func(raw []byte) {
		if p := int32(peakS16(raw)); p > peak.Load() {
			peak.Store(p)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
	}

	select {
	case <-time.After(m.hold):
	case <-ctx.Done():
	}
	closeDevice()
	m.log.Info("mic: capture access ok (rate=%d, peak=%d)", CaptureSampleRate, peak.Load())

	var once sync.Once
	release := func() {
		once.Do(func() { m.log.Debug("mic: grant released") })
	}
	return release, nil
}

// openCapture opens the default capture device with the whisper capture
// format.
func openCapture(onData func(raw []byte)) (func(), error) {
	mCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(_ string) {})
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = CaptureSampleRate
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = CaptureChannels
	devCfg.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_ []byte, raw []byte, _ uint32) { onData(raw) },
	}

	device, err := malgo.InitDevice(mCtx.Context, devCfg, callbacks)
	if err != nil {
		_ = mCtx.Uninit()
		mCtx.Free()
		return nil, fmt.Errorf("capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mCtx.Uninit()
		mCtx.Free()
		return nil, fmt.Errorf("capture start: %w", err)
	}

	return func() {
		_ = device.Stop()
		device.Uninit()
		_ = mCtx.Uninit()
		mCtx.Free()
	}, nil
}

// peakS16 returns the largest absolute sample in little-endian S16 PCM.
func peakS16(raw []byte) int {
	peak := 0
	for i := 0; i+1 < len(raw); i += 2 {
		v := int(int16(binary.LittleEndian.Uint16(raw[i : i+2])))
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	return peak
}
