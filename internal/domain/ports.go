package domain

import "context"

// RecipeSource provides recipes. Implementations can be in-memory,
// HTTP-backed, or a cache in front of either.
type RecipeSource interface {
	List(ctx context.Context) ([]RecipeSummary, error)
	Get(ctx context.Context, id string) (*Recipe, error)
	Categories(ctx context.Context, id string) ([]string, error)
}

// RecipeStore keeps fetched recipes around so a reload does not go back
// to the provider.
type RecipeStore interface {
	Save(ctx context.Context, recipe *Recipe) error
	Load(ctx context.Context, id string) (*Recipe, error)
	Delete(ctx context.Context, id string) error
}

// Notifier delivers one-shot messages to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// Synthesizer is the speech-output capability. Speak queues an utterance
// and returns immediately; an UtteranceEnded event follows once it has
// played. CancelAll drops queued utterances and silences the one in
// flight; cancelled utterances produce no end event.
type Synthesizer interface {
	Speak(u Utterance)
	CancelAll()
}

// Prefetcher is an optional Synthesizer extension that warms a cache for
// text that will be spoken soon.
type Prefetcher interface {
	Prefetch(ctx context.Context, voiceID string, rate float64, texts ...string)
}

// RecognitionCapability is continuous speech recognition. Start begins a
// listening session; Stop ends it. Results, errors and the end of the
// session are reported as events.
type RecognitionCapability interface {
	Start() error
	Stop()
}

// Microphone grants scoped access to the audio input device.
type Microphone interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// VoiceLister lists the voices a speech provider offers.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
