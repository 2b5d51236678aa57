package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ AudioOutput = (*Speaker)(nil)

var (
	errShortWAV  = errors.New("wav data too short")
	errNotWAV    = errors.New("not a valid WAV file")
	errNoDataWAV = errors.New("data chunk not found in WAV")
	errFormatWAV = errors.New("unsupported WAV format")
)

const pollInterval = 10 * time.Millisecond

// Speaker plays WAV audio through the system output via oto.
// One clip plays at a time; cancelling the context passed to Play
// interrupts it.
type Speaker struct {
	ctx *oto.Context
	log *logger.Logger
	mu  sync.Mutex // serializes clips
}

// NewSpeaker initializes the audio context. Returns an error if the
// output device is unavailable.
func NewSpeaker(log *logger.Logger) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio output: %w", err)
	}
	<-ready

	log.Debug("speaker initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Speaker{ctx: ctx, log: log}, nil
}

// Play blocks until the clip finishes or ctx is cancelled. A clip whose
// context is already cancelled is never started.
func (s *Speaker) Play(ctx context.Context, wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	p := s.ctx.NewPlayer(bytes.NewReader(pcm))
	p.Play()
	s.log.Debug("speaker: playing %d bytes of PCM", len(pcm))

	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			s.log.Debug("speaker: interrupted")
			_ = p.Close()
			return ctx.Err()
		case <-tick.C:
		}
	}
	return p.Close()
}

// extractPCM validates a RIFF/WAVE clip and returns the samples of its
// data chunk. A fmt chunk, when present, must be 16-bit PCM.
func extractPCM(wav []byte) ([]byte, error) {
	if len(wav) < 44 {
		return nil, errShortWAV
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errNotWAV
	}

	pos := 12
	for pos+8 <= len(wav) {
		id := string(wav[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if body+16 > len(wav) {
				return nil, errShortWAV
			}
			audioFormat := binary.LittleEndian.Uint16(wav[body : body+2])
			bits := binary.LittleEndian.Uint16(wav[body+14 : body+16])
			if audioFormat != 1 || bits != BitDepth {
				return nil, fmt.Errorf("%w: format=%d bits=%d", errFormatWAV, audioFormat, bits)
			}
		case "data":
			end := body + size
			if end > len(wav) {
				end = len(wav)
			}
			return wav[body:end], nil
		}

		pos = body + size
		// Chunks are word-aligned.
		if size%2 != 0 {
			pos++
		}
	}

	return nil, errNoDataWAV
}
