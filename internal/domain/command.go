package domain

// Command is the canonical action derived from one recognized phrase.
type Command int

const (
	CommandNone Command = iota
	CommandPlay
	CommandContinue
	CommandRepeat
	CommandStartOver
	CommandStop
)

// String returns a human-readable command name.
func (c Command) String() string {
	switch c {
	case CommandPlay:
		return "play"
	case CommandContinue:
		return "continue"
	case CommandRepeat:
		return "repeat"
	case CommandStartOver:
		return "start_over"
	case CommandStop:
		return "stop"
	default:
		return "none"
	}
}
