package domain

// Event is something a capability reports to the narration controller.
// Adapters emit events; only the controller's dispatch loop consumes them.
type Event interface {
	EventName() string
}

// PhraseRecognized carries one recognition result.
type PhraseRecognized struct {
	Text  string
	Final bool
}

// RecognitionFailed carries a capability-level recognition error code.
type RecognitionFailed struct {
	Code string
}

// RecognitionEnded signals that the underlying listening session is over.
type RecognitionEnded struct{}

// UtteranceEnded signals that an utterance finished playing.
type UtteranceEnded struct {
	ID uint64
}

// VoicesChanged carries a fresh voice listing from the provider.
type VoicesChanged struct {
	Voices []Voice
}

func (PhraseRecognized) EventName() string  { return "phrase_recognized" }
func (RecognitionFailed) EventName() string { return "recognition_failed" }
func (RecognitionEnded) EventName() string  { return "recognition_ended" }
func (UtteranceEnded) EventName() string    { return "utterance_ended" }
func (VoicesChanged) EventName() string     { return "voices_changed" }

// Emitter accepts events from capability adapters.
type Emitter interface {
	Emit(ev Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ev Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }
