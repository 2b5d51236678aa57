package speech

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	audiotranscriber "github.com/sklyt/whisper/pkg"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.RecognitionCapability = (*Ear)(nil)

// envAnnotation matches whisper environmental annotations like
// "(keyboard clicking)", "[laughter]", "(speaking French)", etc.
var envAnnotation = regexp.MustCompile(`[\(\[][a-zA-Z][a-zA-Z\s]*[\)\]]`)

// Transcriber records one clip of the given length and returns its text.
type Transcriber interface {
	Record(ctx context.Context, d time.Duration) (string, error)
}

// EarOption configures the Ear.
type EarOption func(*Ear)

// WithRecordDuration sets how long each recorded chunk lasts.
func WithRecordDuration(d time.Duration) EarOption {
	return func(e *Ear) { e.recordDuration = d }
}

// WithSilenceGap sets the pause between recording chunks.
func WithSilenceGap(d time.Duration) EarOption {
	return func(e *Ear) { e.silenceGap = d }
}

// WithRetryDelay sets how long a failed recording waits before the
// session ends with an audio-capture error. It bounds how fast a
// persistently failing device is retried.
func WithRetryDelay(d time.Duration) EarOption {
	return func(e *Ear) { e.retryDelay = d }
}

// WithSilenceChunks sets how many empty chunks in a row end the session
// with a no-speech error.
func WithSilenceChunks(n int) EarOption {
	return func(e *Ear) {
		if n > 0 {
			e.silenceChunks = n
		}
	}
}

// Ear is a continuous speech recognizer over a Transcriber. Each non-empty
// chunk becomes a final PhraseRecognized event. A listening session ends
// after too much silence (no-speech), on a recording failure
// (audio-capture), or on Stop; every session ends with exactly one
// RecognitionEnded.
type Ear struct {
	rec     Transcriber
	emitter domain.Emitter
	log     *logger.Logger

	recordDuration time.Duration
	silenceGap     time.Duration
	silenceChunks  int
	retryDelay     time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc // nil when no session is running
	done   chan struct{}
}

// NewEar creates a recognizer that emits onto emitter.
func NewEar(rec Transcriber, emitter domain.Emitter, log *logger.Logger, opts ...EarOption) *Ear {
	e := &Ear{
		rec:            rec,
		emitter:        emitter,
		log:            log,
		recordDuration: 2 * time.Second,
		silenceGap:     100 * time.Millisecond,
		silenceChunks:  4,
		retryDelay:     2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a listening session. It fails with ErrAlreadyStarted while
// a session is running.
func (e *Ear) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		return domain.ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done

	e.log.Debug("ear: session started (chunk=%s, silence=%d)", e.recordDuration, e.silenceChunks)
	go e.listen(ctx, done)
	return nil
}

// Stop ends the running session. No-op when idle. The session's
// RecognitionEnded arrives asynchronously.
func (e *Ear) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		e.log.Debug("ear: stop requested")
	}
}

// Wait blocks until the most recent session has exited.
func (e *Ear) Wait() {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Listening reports whether a session is running.
func (e *Ear) Listening() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancel != nil
}

// ── Session loop ─────────────────────────────────────────────────

func (e *Ear) listen(ctx context.Context, done chan struct{}) {
	defer e.finish(done)

	empty := 0
	for {
		text, err := e.rec.Record(ctx, e.recordDuration)
		if ctx.Err() != nil {
			// Stopped mid-chunk: whatever was heard is discarded.
			return
		}
		if err != nil {
			e.log.Error("ear: recording failed: %v", err)
			select {
			case <-time.After(e.retryDelay):
			case <-ctx.Done():
				return
			}
			e.emitter.Emit(domain.RecognitionFailed{Code: domain.CodeAudioCapture})
			return
		}

		text = cleanTranscription(text)
		if text == "" {
			empty++
			if empty >= e.silenceChunks {
				e.log.Debug("ear: %d silent chunks, ending session", empty)
				e.emitter.Emit(domain.RecognitionFailed{Code: domain.CodeNoSpeech})
				return
			}
			continue
		}

		empty = 0
		e.log.Info("ear: heard %q", text)
		e.emitter.Emit(domain.PhraseRecognized{Text: text, Final: true})

		select {
		case <-time.After(e.silenceGap):
		case <-ctx.Done():
			return
		}
	}
}

// finish clears the session before announcing its end, so a Start issued
// in response to RecognitionEnded always succeeds.
func (e *Ear) finish(done chan struct{}) {
	e.mu.Lock()
	if e.done == done {
		if e.cancel != nil {
			e.cancel()
		}
		e.cancel = nil
	}
	e.mu.Unlock()

	close(done)
	e.emitter.Emit(domain.RecognitionEnded{})
	e.log.Debug("ear: session ended")
}

// ── Whisper transcriber ──────────────────────────────────────────

// WhisperTranscriber records clips from the default input device and
// transcribes them with a local whisper.cpp binary.
type WhisperTranscriber struct {
	whisperBin string
	modelPath  string
	tempDir    string
	log        *logger.Logger
}

// NewWhisperTranscriber creates a transcriber.
//
//   - whisperBin: path to the whisper-cli executable
//   - modelPath:  path to the GGML model file
//   - tempDir:    directory for temporary WAV files
func NewWhisperTranscriber(whisperBin, modelPath, tempDir string, log *logger.Logger) *WhisperTranscriber {
	if tempDir == "" {
		tempDir = ".otto-stt"
	}
	return &WhisperTranscriber{
		whisperBin: whisperBin,
		modelPath:  modelPath,
		tempDir:    tempDir,
		log:        log,
	}
}

// Record does one recording cycle of length d and returns the
// transcribed text. A cancelled ctx cuts the recording short.
func (w *WhisperTranscriber) Record(ctx context.Context, d time.Duration) (string, error) {
	var (
		result string
		wg     sync.WaitGroup
	)
	wg.Add(1)

	callback := func(text string) {
		result = text
		wg.Done()
	}

	verbose := w.log.GetLevel() >= logger.LevelVerbose
	t, err := audiotranscriber.NewTranscriber(
		w.whisperBin,
		w.modelPath,
		w.tempDir,
		"wav",
		callback,
		verbose,
	)
	if err != nil {
		return "", fmt.Errorf("transcriber init: %w", err)
	}

	if err := t.Start(); err != nil {
		return "", fmt.Errorf("recording start: %w", err)
	}

	select {
	case <-time.After(d):
	case <-ctx.Done():
	}

	t.Stop()
	wg.Wait()

	return result, nil
}

// ── Transcription cleanup ────────────────────────────────────────

// cleanTranscription strips whitespace, normalizes newlines, and
// removes common whisper artifacts like "[BLANK_AUDIO]", "(silence)",
// etc. Artifacts are stripped from anywhere in the text, not just as
// exact full-string matches.
func cleanTranscription(s string) string {
	// Normalize newlines and collapse whitespace.
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)

	// Junk patterns to strip from anywhere in the text.
	junkPatterns := []string{
		"[BLANK_AUDIO]",
		"[BLANK AUDIO]",
		"(silence)",
		"[silence]",
		"(no speech)",
		"[no speech]",
		"[Music]",
		"(music)",
		"(keyboard clicking)",
		"(keyboard clacking)",
		"(typing)",
		"(clicking)",
		"(mouse clicking)",
		"(breathing)",
		"(sighing)",
		"(coughing)",
		"(laughing)",
		"(clapping)",
		"(footsteps)",
		"(door closing)",
		"(door opening)",
		"(knocking)",
		"(phone ringing)",
		"(birds chirping)",
		"(dog barking)",
		"(baby crying)",
		"(water running)",
		"(wind blowing)",
		"(rain)",
		"(thunder)",
		"(static)",
		"(background noise)",
		"(inaudible)",
		"(unintelligible)",
		"(applause)",
		"(cheering)",
		"(buzzing)",
		"(beeping)",
	}
	for _, j := range junkPatterns {
		s = strings.ReplaceAll(s, j, "")
		s = strings.ReplaceAll(s, strings.ToLower(j), "")
		s = strings.ReplaceAll(s, strings.ToUpper(j), "")
	}

	// Collapse any whitespace created by removals.
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.TrimSpace(s)

	// Catch-all: strip any remaining (parenthesized) or [bracketed]
	// environmental annotations that whisper may produce, e.g.
	// "(dog barking)", "[laughter]", "(speaking French)", etc.
	s = envAnnotation.ReplaceAllString(s, "")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	s = strings.TrimSpace(s)

	// If what remains is just a known hallucination, discard entirely.
	hallucinations := []string{
		"...",
		"you",
		"Thank you.",
		"Thanks for watching!",
		"Thank you for watching.",
		"Bye.",
		"Bye!",
		"The end.",
		"Sous-titres réalisés para la communauté d'Amara.org",
	}
	lower := strings.ToLower(s)
	for _, h := range hallucinations {
		if strings.ToLower(h) == lower {
			return ""
		}
	}

	// Strip whisper timestamp prefixes like "[00:00:00.000 --> 00:00:05.000]"
	if strings.HasPrefix(s, "[") {
		if idx := strings.Index(s, "]"); idx != -1 && idx < 40 {
			rest := strings.TrimSpace(s[idx+1:])
			if rest != "" {
				return rest
			}
		}
	}

	return s
}
