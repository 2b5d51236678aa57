// Package speech provides the speech output, speech input and voice
// listing adapters used by the narration engine.
package speech

import (
	"context"
	"sync"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Synthesizer = (*TextMouth)(nil)
	_ domain.Prefetcher  = (*TextMouth)(nil)
)

// TextMouth is a synthesizer that prints instead of speaking. Used when
// voice output is disabled or no TTS credentials are configured. Every
// utterance ends right after it is printed, in order.
type TextMouth struct {
	write   func(text string)
	emitter domain.Emitter
	log     *logger.Logger

	mu    sync.Mutex
	gen   uint64
	queue chan queued
}

// NewTextMouth creates a text-only synthesizer. write receives each
// utterance's text; nil discards it.
func NewTextMouth(write func(text string), emitter domain.Emitter, log *logger.Logger) *TextMouth {
	if write == nil {
		write = func(string) {}
	}
	return &TextMouth{
		write:   write,
		emitter: emitter,
		log:     log,
		queue:   make(chan queued, 64),
	}
}

// Start runs the delivery loop until ctx is cancelled.
func (t *TextMouth) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case item := <-t.queue:
				if t.stale(item) {
					continue
				}
				t.write(item.u.Text)
				if t.stale(item) {
					continue
				}
				t.emitter.Emit(domain.UtteranceEnded{ID: item.u.ID})
			}
		}
	}()
}

// Speak queues u for printing.
func (t *TextMouth) Speak(u domain.Utterance) {
	t.mu.Lock()
	item := queued{u: u, gen: t.gen}
	t.mu.Unlock()

	select {
	case t.queue <- item:
		t.log.Debug("text mouth: queued #%d %s", u.ID, u.Kind)
	default:
		t.log.Warn("text mouth: queue full, dropping #%d", u.ID)
	}
}

// CancelAll drops everything queued. Dropped utterances never end.
func (t *TextMouth) CancelAll() {
	t.mu.Lock()
	t.gen++
	t.mu.Unlock()
}

// Prefetch is a no-op; there is nothing to synthesize.
func (t *TextMouth) Prefetch(context.Context, string, float64, ...string) {}

func (t *TextMouth) stale(item queued) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return item.gen != t.gen
}
