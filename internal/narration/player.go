// Package narration implements the two turn-taking state machines of the
// narrator: the Player, which speaks segments and prompts one utterance
// at a time, and the Recognizer, which runs continuous command listening
// and recovers from transient failures.
//
// Neither type is safe for concurrent use. Both are driven from the
// engine's single dispatch goroutine.
package narration

import (
	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// DefaultPrompt is spoken after every segment.
const DefaultPrompt = "Say 'continue' to proceed, 'repeat' to hear this again, 'start over' to begin from the start, or 'stop' to cancel."

// RateSource supplies the speech rate at dispatch time.
type RateSource interface {
	Value() float64
}

// VoiceSource supplies the selected voice at dispatch time.
type VoiceSource interface {
	Selected() (domain.Voice, bool)
}

// PlayerOption configures the Player.
type PlayerOption func(*Player)

// WithPrompt overrides the utterance spoken after each segment.
func WithPrompt(text string) PlayerOption {
	return func(p *Player) {
		p.prompt = text
	}
}

// WithDispatchHook registers a function called for every utterance the
// player hands to the synthesizer.
func WithDispatchHook(fn func(domain.Utterance)) PlayerOption {
	return func(p *Player) {
		p.onDispatch = fn
	}
}

// Player owns the segment sequence and the playback cursor of one
// session. Each turn is a segment followed by the prompt; when the
// prompt has finished the player waits in AwaitingCommand.
//
// Only one utterance is in flight at a time. End events for any other
// utterance (for example one that was cancelled) are ignored.
type Player struct {
	synth      domain.Synthesizer
	rate       RateSource
	voices     VoiceSource
	log        *logger.Logger
	prompt     string
	onDispatch func(domain.Utterance)

	segments []string
	cursor   int
	state    domain.PlayerState
	inFlight uint64 // utterance ID awaiting its end event, 0 if none
	lastID   uint64
}

// NewPlayer creates an idle player with no segments.
func NewPlayer(synth domain.Synthesizer, rate RateSource, voices VoiceSource, log *logger.Logger, opts ...PlayerOption) *Player {
	p := &Player{
		synth:  synth,
		rate:   rate,
		voices: voices,
		log:    log,
		prompt: DefaultPrompt,
		state:  domain.PlayerIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load installs a new segment sequence and resets the cursor. Anything
// still playing is cancelled.
func (p *Player) Load(segments []string) {
	p.Stop()
	p.segments = append([]string(nil), segments...)
	p.cursor = 0
	p.log.Debug("player: loaded %d segments", len(p.segments))
}

// Play starts speaking from segment from. Returns ErrNoSegments if
// nothing is loaded.
func (p *Player) Play(from int) error {
	if len(p.segments) == 0 {
		return domain.ErrNoSegments
	}
	if from < 0 {
		from = 0
	}
	if from > len(p.segments) {
		from = len(p.segments)
	}

	p.cancelInFlight()
	p.cursor = from
	p.speakCurrent()
	return nil
}

// Advance moves to the next segment and speaks it. If there is no next
// segment the cursor stays at the end, the player goes Idle and Advance
// reports true.
func (p *Player) Advance() (finished bool) {
	p.cancelInFlight()

	if p.cursor < len(p.segments) {
		p.cursor++
	}
	p.speakCurrent()

	finished = p.state == domain.PlayerIdle
	if finished {
		p.log.Info("player: narration finished (%d segments)", len(p.segments))
	}
	return finished
}

// Repeat speaks the current segment again without moving the cursor.
func (p *Player) Repeat() {
	p.cancelInFlight()
	p.speakCurrent()
}

// Restart resets the cursor and speaks from the first segment.
func (p *Player) Restart() error {
	return p.Play(0)
}

// Stop cancels queued and in-flight speech and returns to Idle. Always
// succeeds, even when nothing is playing.
func (p *Player) Stop() {
	p.synth.CancelAll()
	if p.state != domain.PlayerIdle {
		p.log.Debug("player: stopped at segment %d/%d (%s)", p.cursor+1, len(p.segments), p.state)
	}
	p.inFlight = 0
	p.state = domain.PlayerIdle
}

// HandleUtteranceEnd consumes an utterance end event. It returns true
// when the event completed a turn and the player is now awaiting a command.
func (p *Player) HandleUtteranceEnd(id uint64) bool {
	if id == 0 || id != p.inFlight {
		p.log.Debug("player: ignoring end of utterance %d (in flight=%d)", id, p.inFlight)
		return false
	}
	p.inFlight = 0

	switch p.state {
	case domain.PlayerSpeakingSegment:
		p.state = domain.PlayerSpeakingPrompt
		p.dispatch(domain.UtterancePrompt, p.prompt)
		return false
	case domain.PlayerSpeakingPrompt:
		p.state = domain.PlayerAwaitingCommand
		p.log.Debug("player: awaiting command after segment %d/%d", p.cursor+1, len(p.segments))
		return true
	default:
		return false
	}
}

// State returns the player state.
func (p *Player) State() domain.PlayerState { return p.state }

// Cursor returns the index of the current segment.
func (p *Player) Cursor() int { return p.cursor }

// Len returns the number of loaded segments.
func (p *Player) Len() int { return len(p.segments) }

// speakCurrent dispatches the segment under the cursor, or goes Idle if
// the cursor is past the end.
func (p *Player) speakCurrent() {
	if p.cursor >= len(p.segments) {
		p.state = domain.PlayerIdle
		return
	}
	p.state = domain.PlayerSpeakingSegment
	p.dispatch(domain.UtteranceSegment, p.segments[p.cursor])
}

// dispatch builds an utterance with the rate and voice in effect right
// now and hands it to the synthesizer.
func (p *Player) dispatch(kind domain.UtteranceKind, text string) {
	p.lastID++
	u := domain.Utterance{
		ID:   p.lastID,
		Kind: kind,
		Text: text,
		Rate: p.rate.Value(),
	}
	if v, ok := p.voices.Selected(); ok {
		u.VoiceID = v.ID
	}

	p.inFlight = u.ID
	p.log.Debug("player: dispatch %s #%d (segment %d/%d, rate=%.1f, voice=%q)",
		kind, u.ID, p.cursor+1, len(p.segments), u.Rate, u.VoiceID)
	p.synth.Speak(u)

	if p.onDispatch != nil {
		p.onDispatch(u)
	}
}

// cancelInFlight silences whatever is playing so a new utterance never
// overlaps the previous one.
func (p *Player) cancelInFlight() {
	if p.inFlight != 0 || p.state == domain.PlayerSpeakingSegment || p.state == domain.PlayerSpeakingPrompt {
		p.synth.CancelAll()
		p.inFlight = 0
	}
}
