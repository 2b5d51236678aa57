package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound               = errors.New("not found")
	ErrFetchFailed            = errors.New("recipe fetch failed")
	ErrNoRecipe               = errors.New("no recipe loaded")
	ErrNoSegments             = errors.New("recipe has nothing to narrate")
	ErrPermissionDenied       = errors.New("microphone permission denied")
	ErrRecognitionUnsupported = errors.New("speech recognition not supported")
	ErrRecognitionDisabled    = errors.New("speech recognition disabled for this session")
	ErrAlreadyStarted         = errors.New("already started")
	ErrEngineStopped          = errors.New("engine is not running")
)

// Recognition error codes reported by a recognition capability. The
// values mirror the codes of the common browser and cloud recognizers so
// adapters can pass them through unchanged.
const (
	CodeNoSpeech            = "no-speech"
	CodeAudioCapture        = "audio-capture"
	CodeNotAllowed          = "not-allowed"
	CodeServiceNotAllowed   = "service-not-allowed"
	CodeNetwork             = "network"
	CodeAborted             = "aborted"
	CodeLanguageUnsupported = "language-not-supported"
)

// RecognitionError is a capability-level recognition failure.
type RecognitionError struct {
	Code string
}

func (e *RecognitionError) Error() string {
	return fmt.Sprintf("speech recognition error: %s", e.Code)
}

// Transient reports whether the failure is expected to clear on its own
// after the recognizer restarts.
func (e *RecognitionError) Transient() bool {
	return e.Code == CodeNoSpeech || e.Code == CodeAudioCapture
}

// Is lets errors.Is match permission failures against ErrPermissionDenied.
func (e *RecognitionError) Is(target error) bool {
	if target == ErrPermissionDenied {
		return e.Code == CodeNotAllowed || e.Code == CodeServiceNotAllowed
	}
	return false
}
