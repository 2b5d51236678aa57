package narration

import (
	"errors"
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
	"github.com/hammamikhairi/ottoread/internal/voice"
)

// fakeSynth records utterances and fails the test if a new one is queued
// while another is still playing.
type fakeSynth struct {
	t       *testing.T
	spoken  []domain.Utterance
	playing uint64
	cancels int
}

func (s *fakeSynth) Speak(u domain.Utterance) {
	s.t.Helper()
	if s.playing != 0 {
		s.t.Fatalf("utterance %d queued while %d is still playing", u.ID, s.playing)
	}
	s.playing = u.ID
	s.spoken = append(s.spoken, u)
}

func (s *fakeSynth) CancelAll() {
	s.playing = 0
	s.cancels++
}

// finish marks the current utterance as done and returns its ID.
func (s *fakeSynth) finish() uint64 {
	id := s.playing
	s.playing = 0
	return id
}

func (s *fakeSynth) last() domain.Utterance {
	if len(s.spoken) == 0 {
		return domain.Utterance{}
	}
	return s.spoken[len(s.spoken)-1]
}

var testSegments = []string{
	"This is the Pasta recipe from Ana.",
	"Here are the ingredients. Flour. Eggs.",
	"And now the steps for preparation. Mix. Knead.",
}

func newTestPlayer(t *testing.T) (*Player, *fakeSynth, *voice.Rate) {
	t.Helper()
	log := logger.New(logger.LevelOff, nil)
	synth := &fakeSynth{t: t}
	rate := voice.NewRate()
	catalog := voice.NewCatalog(log)
	p := NewPlayer(synth, rate, catalog, log)
	p.Load(testSegments)
	return p, synth, rate
}

// completeTurn plays out a segment and its prompt.
func completeTurn(t *testing.T, p *Player, synth *fakeSynth) {
	t.Helper()
	if p.HandleUtteranceEnd(synth.finish()) {
		t.Fatal("turn reported complete after the segment alone")
	}
	if p.State() != domain.PlayerSpeakingPrompt {
		t.Fatalf("expected speaking_prompt, got %s", p.State())
	}
	if !p.HandleUtteranceEnd(synth.finish()) {
		t.Fatal("turn not reported complete after the prompt")
	}
}

func TestPlayerPlayEmpty(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	p := NewPlayer(&fakeSynth{t: t}, voice.NewRate(), voice.NewCatalog(log), log)

	if err := p.Play(0); !errors.Is(err, domain.ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
	if p.State() != domain.PlayerIdle {
		t.Fatalf("expected idle, got %s", p.State())
	}
}

func TestPlayerNarratesInOrder(t *testing.T) {
	p, synth, _ := newTestPlayer(t)

	if err := p.Play(0); err != nil {
		t.Fatalf("play: %v", err)
	}

	for i, want := range testSegments {
		if got := p.Cursor(); got != i {
			t.Fatalf("cursor = %d, want %d", got, i)
		}
		if got := synth.last(); got.Text != want || got.Kind != domain.UtteranceSegment {
			t.Fatalf("segment %d: spoke %s %q, want %q", i, got.Kind, got.Text, want)
		}
		completeTurn(t, p, synth)
		if got := synth.last(); got.Kind != domain.UtterancePrompt || got.Text != DefaultPrompt {
			t.Fatalf("expected prompt after segment %d, got %s %q", i, got.Kind, got.Text)
		}
		if p.State() != domain.PlayerAwaitingCommand {
			t.Fatalf("expected awaiting_command, got %s", p.State())
		}

		finished := p.Advance()
		if wantFinished := i == len(testSegments)-1; finished != wantFinished {
			t.Fatalf("advance after segment %d: finished = %v, want %v", i, finished, wantFinished)
		}
	}

	if p.State() != domain.PlayerIdle {
		t.Fatalf("expected idle after last segment, got %s", p.State())
	}
	if p.Cursor() != len(testSegments) {
		t.Fatalf("cursor = %d, want %d", p.Cursor(), len(testSegments))
	}
	if got := len(synth.spoken); got != 2*len(testSegments) {
		t.Fatalf("spoke %d utterances, want %d", got, 2*len(testSegments))
	}
}

func TestPlayerAdvanceAtEndStaysPut(t *testing.T) {
	p, synth, _ := newTestPlayer(t)
	_ = p.Play(len(testSegments) - 1)
	completeTurn(t, p, synth)

	if !p.Advance() {
		t.Fatal("expected finished")
	}
	if !p.Advance() {
		t.Fatal("expected finished on second advance")
	}
	if p.Cursor() != len(testSegments) {
		t.Fatalf("cursor = %d, want %d", p.Cursor(), len(testSegments))
	}
}

func TestPlayerRepeat(t *testing.T) {
	p, synth, _ := newTestPlayer(t)
	_ = p.Play(0)
	completeTurn(t, p, synth)
	p.Advance()
	completeTurn(t, p, synth)

	p.Repeat()
	if p.Cursor() != 1 {
		t.Fatalf("cursor = %d, want 1", p.Cursor())
	}
	if got := synth.last().Text; got != testSegments[1] {
		t.Fatalf("repeat spoke %q, want %q", got, testSegments[1])
	}
}

func TestPlayerRestartAfterFinish(t *testing.T) {
	p, synth, _ := newTestPlayer(t)
	_ = p.Play(0)
	for range testSegments {
		completeTurn(t, p, synth)
		p.Advance()
	}

	if err := p.Restart(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if p.Cursor() != 0 {
		t.Fatalf("cursor = %d, want 0", p.Cursor())
	}
	if got := synth.last().Text; got != testSegments[0] {
		t.Fatalf("restart spoke %q, want %q", got, testSegments[0])
	}
}

func TestPlayerStopIsIdempotent(t *testing.T) {
	p, synth, _ := newTestPlayer(t)
	_ = p.Play(0)

	p.Stop()
	p.Stop()
	if p.State() != domain.PlayerIdle {
		t.Fatalf("expected idle, got %s", p.State())
	}
	if synth.cancels < 2 {
		t.Fatalf("expected every stop to cancel, got %d cancels", synth.cancels)
	}
}

func TestPlayerIgnoresStaleEnd(t *testing.T) {
	p, synth, _ := newTestPlayer(t)
	_ = p.Play(0)
	stale := synth.last().ID

	p.Repeat()
	if p.HandleUtteranceEnd(stale) {
		t.Fatal("stale end completed a turn")
	}
	if p.State() != domain.PlayerSpeakingSegment {
		t.Fatalf("stale end changed state to %s", p.State())
	}

	p.Stop()
	if p.HandleUtteranceEnd(synth.last().ID) {
		t.Fatal("end after stop completed a turn")
	}
	if p.State() != domain.PlayerIdle {
		t.Fatalf("expected idle, got %s", p.State())
	}
}

func TestPlayerRateAppliedAtDispatch(t *testing.T) {
	p, synth, rate := newTestPlayer(t)
	_ = p.Play(0)
	if got := synth.last().Rate; got != voice.DefaultRate {
		t.Fatalf("rate = %.1f, want %.1f", got, voice.DefaultRate)
	}

	rate.Increase()
	rate.Increase()
	if got := synth.last().Rate; got != voice.DefaultRate {
		t.Fatalf("in-flight utterance changed rate to %.1f", got)
	}

	p.HandleUtteranceEnd(synth.finish())
	if got := synth.last().Rate; got != 1.2 {
		t.Fatalf("prompt rate = %.1f, want 1.2", got)
	}
}

func TestPlayerVoiceAppliedAtDispatch(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	synth := &fakeSynth{t: t}
	catalog := voice.NewCatalog(log)
	p := NewPlayer(synth, voice.NewRate(), catalog, log)
	p.Load(testSegments)

	_ = p.Play(0)
	if got := synth.last().VoiceID; got != "" {
		t.Fatalf("expected provider default voice, got %q", got)
	}

	catalog.Refresh([]domain.Voice{{ID: "en-GB-RyanNeural", Name: "Ryan (Male)", Locale: "en-GB"}})
	catalog.Select("en-GB", "male")
	p.HandleUtteranceEnd(synth.finish())
	if got := synth.last().VoiceID; got != "en-GB-RyanNeural" {
		t.Fatalf("prompt voice = %q, want en-GB-RyanNeural", got)
	}
}
