package domain

// Voice is one synthesis voice offered by the speech provider.
type Voice struct {
	ID     string // provider key sent with each utterance
	Name   string // display name, matched against gender hints
	Locale string // BCP 47 tag, e.g. "en-GB"
	Gender string
}

// UtteranceKind says what an utterance carries.
type UtteranceKind int

const (
	UtteranceSegment UtteranceKind = iota
	UtterancePrompt
	UtteranceNotice
)

// String returns a human-readable utterance kind.
func (k UtteranceKind) String() string {
	switch k {
	case UtteranceSegment:
		return "segment"
	case UtterancePrompt:
		return "prompt"
	case UtteranceNotice:
		return "notice"
	default:
		return "unknown"
	}
}

// Utterance is one dispatched unit of speech output. Rate and VoiceID are
// captured when the utterance is dispatched, never earlier.
type Utterance struct {
	ID      uint64
	Kind    UtteranceKind
	Text    string
	Rate    float64
	VoiceID string // empty means the provider default voice
}
