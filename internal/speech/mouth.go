package speech

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/spf13/afero"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.Synthesizer = (*Mouth)(nil)
	_ domain.Prefetcher  = (*Mouth)(nil)
)

// TTS turns text into WAV audio.
type TTS interface {
	Synthesize(ctx context.Context, text, voice string, rate float64) ([]byte, error)
	Voice() string
}

// AudioOutput plays WAV audio. Play blocks until playback finishes or
// ctx is cancelled, and must not start a clip whose ctx is already done.
type AudioOutput interface {
	Play(ctx context.Context, wav []byte) error
}

// MouthOption configures the Mouth.
type MouthOption func(*Mouth)

// WithQueueSize sets the internal notification channel capacity.
func WithQueueSize(n int) MouthOption {
	return func(m *Mouth) {
		m.notify = make(chan struct{}, n)
	}
}

// WithChunkSize sets the approximate max character count per TTS chunk.
// Text longer than this is split at sentence boundaries and synthesized
// in parallel so playback doesn't stall between sentences.
func WithChunkSize(n int) MouthOption {
	return func(m *Mouth) {
		m.chunkSize = n
	}
}

// WithCacheDir sets the filesystem directory used for persistent audio
// caching. If empty, the disk layer is disabled (pure in-memory).
func WithCacheDir(dir string) MouthOption {
	return func(m *Mouth) {
		m.cacheDir = dir
	}
}

// WithCacheFs sets the filesystem behind the disk cache layer.
func WithCacheFs(fs afero.Fs) MouthOption {
	return func(m *Mouth) {
		m.cacheFs = fs
	}
}

// WithDiskWrite controls whether new cache entries are written to disk.
// Even when false, existing on-disk entries are still read.
func WithDiskWrite(enabled bool) MouthOption {
	return func(m *Mouth) {
		m.diskWrite = enabled
	}
}

// queued is an utterance waiting in the Mouth, tagged with the cancel
// generation it was queued under.
type queued struct {
	u        domain.Utterance
	gen      uint64
	queuedAt time.Time
}

// Mouth is the speech synthesizer. It serializes all speech output
// through a single pipeline: queue -> chunk -> synthesize (parallel) ->
// play (sequential). Utterances are spoken strictly in the order they were
// queued and only one plays at a time. When an utterance has finished
// (or failed to synthesize) an UtteranceEnded event is emitted;
// utterances dropped by CancelAll emit nothing.
//
// An internal AudioCache transparently avoids re-synthesizing identical
// text at the same voice and rate. Use Prefetch to pre-warm it.
type Mouth struct {
	tts     TTS
	out     AudioOutput
	emitter domain.Emitter
	log     *logger.Logger
	cache   *AudioCache

	mu        sync.Mutex
	queue     []queued
	notify    chan struct{}
	speaking  bool
	gen       uint64             // bumped by CancelAll
	stopPlay  context.CancelFunc // interrupts the clip being played
	chunkSize int                // chars per TTS request, 0 = no chunking
	cacheFs   afero.Fs
	cacheDir  string // filesystem cache directory
	diskWrite bool   // persist new cache entries to disk
}

// NewMouth creates a speech synthesizer that plays through out and
// reports finished utterances to emitter.
func NewMouth(tts TTS, out AudioOutput, emitter domain.Emitter, log *logger.Logger, opts ...MouthOption) *Mouth {
	m := &Mouth{
		tts:       tts,
		out:       out,
		emitter:   emitter,
		log:       log,
		notify:    make(chan struct{}, 32),
		chunkSize: 200,
		diskWrite: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cache = NewAudioCache(m.cacheFs, m.cacheDir, m.diskWrite, log)
	return m
}

// Speak queues an utterance. Non-blocking.
func (m *Mouth) Speak(u domain.Utterance) {
	m.mu.Lock()
	m.queue = append(m.queue, queued{u: u, gen: m.gen, queuedAt: time.Now()})
	qLen := len(m.queue)
	m.mu.Unlock()

	m.log.Debug("mouth: queued %s #%d (queue_len=%d): %s", u.Kind, u.ID, qLen, truncate(u.Text, 60))

	select {
	case m.notify <- struct{}{}:
	default: // already signaled
	}
}

// CancelAll drops every queued utterance and stops the one playing. None
// of them produce an end event.
func (m *Mouth) CancelAll() {
	m.mu.Lock()
	dropped := len(m.queue)
	m.queue = m.queue[:0]
	m.gen++
	speaking := m.speaking
	stop := m.stopPlay
	m.stopPlay = nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	if dropped > 0 || speaking {
		m.log.Debug("mouth: cancelled (dropped=%d, speaking=%v)", dropped, speaking)
	}
}

// IsSpeaking returns true if the mouth is currently synthesizing or playing audio.
func (m *Mouth) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

// QueueLen returns the number of pending utterances.
func (m *Mouth) QueueLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Start begins the speech processing goroutine. Non-blocking.
func (m *Mouth) Start(ctx context.Context) {
	go m.processLoop(ctx)
	m.log.Info("mouth started")
}

// processLoop waits for queued items and processes them one at a time.
func (m *Mouth) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.log.Info("mouth stopped")
			return
		case <-m.notify:
			m.drain(ctx)
		}
	}
}

// drain processes queued utterances in order until the queue is empty.
func (m *Mouth) drain(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, ok := m.dequeue()
		if !ok {
			return
		}

		m.process(ctx, item)

		m.mu.Lock()
		m.speaking = false
		cancelled := item.gen != m.gen
		m.mu.Unlock()

		if cancelled {
			m.log.Debug("mouth: #%d cancelled, no end event", item.u.ID)
			continue
		}
		m.emitter.Emit(domain.UtteranceEnded{ID: item.u.ID})
	}
}

// dequeue removes and returns the oldest queued utterance, marking the
// mouth as speaking.
func (m *Mouth) dequeue() (queued, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return queued{}, false
	}
	item := m.queue[0]
	m.queue = m.queue[1:]
	m.speaking = true
	return item, true
}

// process synthesizes and plays a single utterance, using chunked
// parallel synthesis for long text.
func (m *Mouth) process(ctx context.Context, item queued) {
	u := item.u
	voice := m.voiceFor(u.VoiceID)
	text := cleanForSpeech(u.Text)
	if text == "" {
		return
	}

	waitTime := time.Since(item.queuedAt).Round(time.Millisecond)
	m.log.Debug("mouth: speaking #%d (waited=%s, voice=%s, rate=%.1f): %s", u.ID, waitTime, voice, u.Rate, truncate(text, 60))

	chunks := m.splitChunks(text)

	type result struct {
		idx   int
		audio []byte
		err   error
	}
	results := make(chan result, len(chunks))

	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := m.synthesizeWithCache(ctx, cacheKey{voice: voice, rate: u.Rate, text: text})
			results <- result{idx: idx, audio: audio, err: err}
		}(i, chunk)
	}

	audioSlots := make([][]byte, len(chunks))
	for range chunks {
		r := <-results
		if r.err != nil {
			m.log.Error("mouth: #%d chunk %d synthesis failed: %v", u.ID, r.idx, r.err)
			continue
		}
		audioSlots[r.idx] = r.audio
	}

	// The generation check and the cancel registration share the lock,
	// so a CancelAll either drops the item here or interrupts its clip.
	playCtx, stop := context.WithCancel(ctx)
	defer stop()
	m.mu.Lock()
	if item.gen != m.gen {
		m.mu.Unlock()
		m.log.Debug("mouth: #%d cancelled before playback", u.ID)
		return
	}
	m.stopPlay = stop
	m.mu.Unlock()
	defer m.clearStop(item)

	for i, audio := range audioSlots {
		if audio == nil {
			continue
		}
		if playCtx.Err() != nil {
			m.log.Debug("mouth: aborting #%d playback at chunk %d", u.ID, i)
			return
		}
		if err := m.out.Play(playCtx, audio); err != nil && playCtx.Err() == nil {
			m.log.Error("mouth: #%d chunk %d playback failed: %v", u.ID, i, err)
		}
	}
}

// clearStop drops the playback cancel registered for item, unless a
// CancelAll already took it.
func (m *Mouth) clearStop(item queued) {
	m.mu.Lock()
	if item.gen == m.gen {
		m.stopPlay = nil
	}
	m.mu.Unlock()
}

// voiceFor resolves an utterance voice, falling back to the TTS default.
func (m *Mouth) voiceFor(id string) string {
	if id != "" {
		return id
	}
	return m.tts.Voice()
}

// synthesizeWithCache checks the cache first, otherwise calls the TTS and
// stores the result. Thread-safe.
func (m *Mouth) synthesizeWithCache(ctx context.Context, key cacheKey) ([]byte, error) {
	if audio, ok := m.cache.Get(key); ok {
		return audio, nil
	}
	audio, err := m.tts.Synthesize(ctx, key.text, key.voice, key.rate)
	if err != nil {
		return nil, err
	}
	m.cache.Put(key, audio)
	return audio, nil
}

// splitChunks breaks text into sentence-boundary chunks of approximately
// m.chunkSize characters. If chunkSize is 0 or the text is short, it
// returns the text as-is in a single slice.
func (m *Mouth) splitChunks(text string) []string {
	if m.chunkSize <= 0 || len(text) <= m.chunkSize {
		return []string{text}
	}

	sentences := splitSentences(text)

	var chunks []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() > 0 && current.Len()+len(s) > m.chunkSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}

	var out []string
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

// splitSentences splits text at sentence boundaries (. ! ?) keeping the
// punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if isSentenceEnd(runes[i]) {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

var (
	bracketPrefix = regexp.MustCompile(`^\[[A-Za-z]+\]\s*`)
	ansiCodes     = regexp.MustCompile(`\x1b\[[0-9;]*m`)
)

// cleanForSpeech strips formatting artifacts that shouldn't be spoken.
func cleanForSpeech(msg string) string {
	cleaned := ansiCodes.ReplaceAllString(msg, "")
	cleaned = bracketPrefix.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// truncate shortens a string for logging.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ── Prefetching / Cache ──────────────────────────────────────────

// Prefetch pre-synthesizes the given texts at voice and rate in
// background goroutines and stores the results in the audio cache. Texts
// already cached are skipped. Non-blocking.
func (m *Mouth) Prefetch(ctx context.Context, voiceID string, rate float64, texts ...string) {
	voice := m.voiceFor(voiceID)
	for _, text := range texts {
		text = cleanForSpeech(text)
		if text == "" {
			continue
		}

		for _, chunk := range m.splitChunks(text) {
			key := cacheKey{voice: voice, rate: rate, text: chunk}
			if m.cache.Has(key) {
				m.log.Debug("prefetch: already cached: %s", truncate(chunk, 50))
				continue
			}
			go func(key cacheKey) {
				audio, err := m.tts.Synthesize(ctx, key.text, key.voice, key.rate)
				if err != nil {
					m.log.Error("prefetch: synthesis failed: %v", err)
					return
				}
				m.cache.Put(key, audio)
				m.log.Debug("prefetch: cached %d bytes for: %s", len(audio), truncate(key.text, 50))
			}(key)
		}
	}
}

// Cache returns the audio cache used by this Mouth.
func (m *Mouth) Cache() *AudioCache { return m.cache }
