package domain

import "time"

// Session is one narration run over a loaded recipe. It is created when
// narration starts and discarded on stop.
type Session struct {
	ID        string
	RecipeID  string
	Segments  []string
	StartedAt time.Time
}

// PlayerState tracks where the narration player is in a turn.
type PlayerState int

const (
	PlayerIdle PlayerState = iota
	PlayerSpeakingSegment
	PlayerSpeakingPrompt
	PlayerAwaitingCommand
)

// String returns a human-readable player state.
func (s PlayerState) String() string {
	switch s {
	case PlayerIdle:
		return "idle"
	case PlayerSpeakingSegment:
		return "speaking_segment"
	case PlayerSpeakingPrompt:
		return "speaking_prompt"
	case PlayerAwaitingCommand:
		return "awaiting_command"
	default:
		return "unknown"
	}
}

// RecognitionState tracks the command recognizer's run state.
type RecognitionState int

const (
	RecognitionIdle RecognitionState = iota
	RecognitionListening
	RecognitionRecovering
)

// String returns a human-readable recognition state.
func (s RecognitionState) String() string {
	switch s {
	case RecognitionIdle:
		return "idle"
	case RecognitionListening:
		return "listening"
	case RecognitionRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the narrator, published for display.
type Status struct {
	Rate        float64
	Recognition RecognitionState
	VoiceInput  bool // false once recognition is disabled for the session
	Player      PlayerState
	Cursor      int
	Total       int
	Voice       string // selected voice name, empty for the provider default
	Voices      []Voice
	RecipeName  string
	Categories  []string
	SessionID   string
}
