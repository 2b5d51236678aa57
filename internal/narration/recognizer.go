package narration

import (
	"context"
	"errors"
	"fmt"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// RecognizerOption configures the Recognizer.
type RecognizerOption func(*Recognizer)

// WithMicrophone sets the microphone grant acquired on first start.
func WithMicrophone(mic domain.Microphone) RecognizerOption {
	return func(r *Recognizer) {
		r.mic = mic
	}
}

// WithRestartHook registers a function called on every automatic restart.
func WithRestartHook(fn func()) RecognizerOption {
	return func(r *Recognizer) {
		r.onRestart = fn
	}
}

// Recognizer is the command-listening state machine:
//
//	Idle -> Listening            on Start
//	Listening -> Recovering      on a transient error (no-speech, audio-capture)
//	Recovering -> Listening      once the stopped session's end is observed
//	any -> Idle                  on Stop or a fatal error
//
// The capability is never started while a previous listening session is
// still winding down: a Start issued before the end event is deferred
// (the recognizer reports Recovering) and performed when the end arrives.
//
// Permission and unsupported failures disable the recognizer for the
// rest of the session. Start then keeps returning the original error.
type Recognizer struct {
	capability domain.RecognitionCapability
	mic        domain.Microphone
	log        *logger.Logger
	onRestart  func()

	state      domain.RecognitionState
	pendingEnd bool // a stopped session has not reported its end yet
	recovering bool // the pending start is an automatic restart
	release    func()
	disabled   error
	restarts   int
}

// NewRecognizer creates an idle recognizer. A nil capability means the
// runtime has no speech recognition; the first Start reports
// ErrRecognitionUnsupported.
func NewRecognizer(capability domain.RecognitionCapability, log *logger.Logger, opts ...RecognizerOption) *Recognizer {
	r := &Recognizer{
		capability: capability,
		log:        log,
		state:      domain.RecognitionIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins continuous listening. It is a no-op while already
// Listening or Recovering.
func (r *Recognizer) Start(ctx context.Context) error {
	if r.disabled != nil {
		return r.disabled
	}
	if r.capability == nil {
		r.disable(domain.ErrRecognitionUnsupported)
		return r.disabled
	}
	if r.state != domain.RecognitionIdle {
		return nil
	}

	if r.mic != nil && r.release == nil {
		release, err := r.mic.Acquire(ctx)
		if err != nil {
			r.disable(fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err))
			return r.disabled
		}
		r.release = release
		r.log.Info("recognizer: microphone access granted")
	}

	if r.pendingEnd {
		r.state = domain.RecognitionRecovering
		r.log.Debug("recognizer: start deferred until previous session ends")
		return nil
	}
	return r.startCapability()
}

// Stop ends listening. Stopping an idle recognizer is a no-op.
func (r *Recognizer) Stop() {
	switch r.state {
	case domain.RecognitionIdle:
		return
	case domain.RecognitionListening:
		r.capability.Stop()
		r.pendingEnd = true
	case domain.RecognitionRecovering:
		// The capability is already stopped; dropping to Idle cancels
		// the restart that was waiting for its end event.
	}
	r.state = domain.RecognitionIdle
	r.recovering = false
	r.log.Debug("recognizer: stopped")
}

// HandlePhrase filters a recognition result. Only final results that
// arrive while listening are passed on.
func (r *Recognizer) HandlePhrase(ev domain.PhraseRecognized) (string, bool) {
	if !ev.Final {
		return "", false
	}
	if r.state != domain.RecognitionListening {
		r.log.Debug("recognizer: dropping phrase %q while %s", ev.Text, r.state)
		return "", false
	}
	return ev.Text, true
}

// HandleError classifies a capability error. Transient errors are
// absorbed and trigger a stop/end/restart cycle. Anything else leaves the
// recognizer Idle and is returned to the caller.
func (r *Recognizer) HandleError(code string) error {
	rerr := &domain.RecognitionError{Code: code}

	if rerr.Transient() {
		if r.state != domain.RecognitionListening {
			r.log.Debug("recognizer: ignoring %s while %s", code, r.state)
			return nil
		}
		r.log.Info("recognizer: transient error %s, restarting", code)
		r.state = domain.RecognitionRecovering
		r.recovering = true
		r.capability.Stop()
		r.pendingEnd = true
		return nil
	}

	permission := errors.Is(rerr, domain.ErrPermissionDenied)
	if r.state == domain.RecognitionIdle && !permission {
		r.log.Debug("recognizer: ignoring %s while idle", code)
		return nil
	}

	if r.state == domain.RecognitionListening {
		r.capability.Stop()
		r.pendingEnd = true
	}
	r.state = domain.RecognitionIdle

	if permission {
		r.disable(rerr)
		return r.disabled
	}
	r.log.Warn("recognizer: %v", rerr)
	return rerr
}

// HandleEnd consumes the end of a listening session. A pending start is
// performed; a session that ended on its own while listening is
// restarted too. Only recoveries count as restarts, not a start that
// was merely deferred behind an explicit stop.
func (r *Recognizer) HandleEnd() error {
	r.pendingEnd = false
	automatic := r.recovering
	r.recovering = false

	switch r.state {
	case domain.RecognitionRecovering:
	case domain.RecognitionListening:
		r.log.Info("recognizer: session ended unexpectedly, restarting")
		automatic = true
	default:
		return nil
	}

	if automatic {
		r.restarts++
		if r.onRestart != nil {
			r.onRestart()
		}
	}
	r.state = domain.RecognitionIdle
	return r.startCapability()
}

// Close stops listening and releases the microphone grant.
func (r *Recognizer) Close() {
	r.Stop()
	if r.release != nil {
		r.release()
		r.release = nil
		r.log.Debug("recognizer: microphone released")
	}
}

// State returns the recognition state.
func (r *Recognizer) State() domain.RecognitionState { return r.state }

// Disabled returns the fatal error that disabled voice input, or nil.
func (r *Recognizer) Disabled() error { return r.disabled }

// Restarts returns how many automatic restarts have happened.
func (r *Recognizer) Restarts() int { return r.restarts }

func (r *Recognizer) startCapability() error {
	if err := r.capability.Start(); err != nil {
		r.state = domain.RecognitionIdle
		var rerr *domain.RecognitionError
		if errors.As(err, &rerr) && errors.Is(rerr, domain.ErrPermissionDenied) {
			r.disable(rerr)
			return r.disabled
		}
		return fmt.Errorf("starting recognition: %w", err)
	}
	r.state = domain.RecognitionListening
	r.log.Debug("recognizer: listening")
	return nil
}

func (r *Recognizer) disable(err error) {
	r.disabled = err
	r.state = domain.RecognitionIdle
	if r.release != nil {
		r.release()
		r.release = nil
	}
	r.log.Error("recognizer: voice commands disabled: %v", err)
}
