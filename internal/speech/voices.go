package speech

import (
	"context"
	"time"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// VoiceWatcherOption configures the voice watcher.
type VoiceWatcherOption func(*VoiceWatcher)

// WithPollInterval sets how often the provider voice list is fetched.
func WithPollInterval(d time.Duration) VoiceWatcherOption {
	return func(w *VoiceWatcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// VoiceWatcher polls the provider voice list and emits VoicesChanged when
// it differs from the last listing. The first successful poll always
// emits.
type VoiceWatcher struct {
	lister   domain.VoiceLister
	emitter  domain.Emitter
	log      *logger.Logger
	interval time.Duration

	last   []domain.Voice
	primed bool
}

// NewVoiceWatcher creates a watcher with the given dependencies.
func NewVoiceWatcher(lister domain.VoiceLister, emitter domain.Emitter, log *logger.Logger, opts ...VoiceWatcherOption) *VoiceWatcher {
	w := &VoiceWatcher{
		lister:   lister,
		emitter:  emitter,
		log:      log,
		interval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls once immediately, then on every tick. Blocks until ctx is
// cancelled. Intended to be called as a goroutine.
func (w *VoiceWatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("voice watcher started (interval=%s)", w.interval)
	w.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("voice watcher stopped")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll fetches the voice list once and reports whether it emitted.
// Not safe for concurrent use; Run is its only caller besides tests.
func (w *VoiceWatcher) Poll(ctx context.Context) bool {
	voices, err := w.lister.ListVoices(ctx)
	if err != nil {
		w.log.Warn("voice watcher: listing voices: %v", err)
		return false
	}

	if w.primed && sameVoices(w.last, voices) {
		return false
	}

	w.last = append([]domain.Voice(nil), voices...)
	w.primed = true
	w.log.Debug("voice watcher: %d voices", len(voices))
	w.emitter.Emit(domain.VoicesChanged{Voices: w.last})
	return true
}

func sameVoices(a, b []domain.Voice) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
