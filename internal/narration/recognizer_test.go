package narration

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

type fakeCapability struct {
	calls    []string
	startErr error
}

func (c *fakeCapability) Start() error {
	c.calls = append(c.calls, "start")
	return c.startErr
}

func (c *fakeCapability) Stop() {
	c.calls = append(c.calls, "stop")
}

type fakeMic struct {
	err      error
	acquired int
	released int
}

func (m *fakeMic) Acquire(context.Context) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.acquired++
	return func() { m.released++ }, nil
}

func newTestRecognizer(capability domain.RecognitionCapability, mic domain.Microphone) *Recognizer {
	log := logger.New(logger.LevelOff, nil)
	if mic == nil {
		return NewRecognizer(capability, log)
	}
	return NewRecognizer(capability, log, WithMicrophone(mic))
}

func TestRecognizerStartListens(t *testing.T) {
	capability := &fakeCapability{}
	mic := &fakeMic{}
	r := newTestRecognizer(capability, mic)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if r.State() != domain.RecognitionListening {
		t.Fatalf("expected listening, got %s", r.State())
	}
	if !reflect.DeepEqual(capability.calls, []string{"start"}) {
		t.Fatalf("calls = %v, want [start]", capability.calls)
	}
	if mic.acquired != 1 {
		t.Fatalf("microphone acquired %d times, want 1", mic.acquired)
	}
}

func TestRecognizerNoSpeechRestarts(t *testing.T) {
	capability := &fakeCapability{}
	restarts := 0
	r := NewRecognizer(capability, logger.New(logger.LevelOff, nil), WithRestartHook(func() { restarts++ }))
	_ = r.Start(context.Background())

	if err := r.HandleError(domain.CodeNoSpeech); err != nil {
		t.Fatalf("transient error surfaced: %v", err)
	}
	if r.State() != domain.RecognitionRecovering {
		t.Fatalf("expected recovering, got %s", r.State())
	}
	if err := r.HandleEnd(); err != nil {
		t.Fatalf("end: %v", err)
	}

	want := []string{"start", "stop", "start"}
	if !reflect.DeepEqual(capability.calls, want) {
		t.Fatalf("calls = %v, want %v", capability.calls, want)
	}
	if r.State() != domain.RecognitionListening {
		t.Fatalf("expected listening, got %s", r.State())
	}
	if r.Restarts() != 1 || restarts != 1 {
		t.Fatalf("restarts = %d (hook %d), want 1", r.Restarts(), restarts)
	}
}

func TestRecognizerAudioCaptureRestarts(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)
	_ = r.Start(context.Background())

	_ = r.HandleError(domain.CodeAudioCapture)
	_ = r.HandleEnd()

	if r.State() != domain.RecognitionListening {
		t.Fatalf("expected listening, got %s", r.State())
	}
}

func TestRecognizerPermissionDenied(t *testing.T) {
	tests := []struct {
		name string
		run  func(r *Recognizer) error
		mic  *fakeMic
		capa *fakeCapability
	}{
		{
			name: "microphone refused",
			mic:  &fakeMic{err: errors.New("device busy")},
			capa: &fakeCapability{},
			run: func(r *Recognizer) error {
				return r.Start(context.Background())
			},
		},
		{
			name: "capability not-allowed",
			mic:  &fakeMic{},
			capa: &fakeCapability{},
			run: func(r *Recognizer) error {
				_ = r.Start(context.Background())
				return r.HandleError(domain.CodeNotAllowed)
			},
		},
		{
			name: "capability service-not-allowed",
			mic:  &fakeMic{},
			capa: &fakeCapability{},
			run: func(r *Recognizer) error {
				_ = r.Start(context.Background())
				return r.HandleError(domain.CodeServiceNotAllowed)
			},
		},
		{
			name: "start rejected",
			mic:  &fakeMic{},
			capa: &fakeCapability{startErr: &domain.RecognitionError{Code: domain.CodeNotAllowed}},
			run: func(r *Recognizer) error {
				return r.Start(context.Background())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRecognizer(tt.capa, tt.mic)

			err := tt.run(r)
			if !errors.Is(err, domain.ErrPermissionDenied) {
				t.Fatalf("expected ErrPermissionDenied, got %v", err)
			}
			if r.State() != domain.RecognitionIdle {
				t.Fatalf("expected idle, got %s", r.State())
			}
			if r.Disabled() == nil {
				t.Fatal("expected recognizer to be disabled")
			}
			if err := r.Start(context.Background()); !errors.Is(err, domain.ErrPermissionDenied) {
				t.Fatalf("restart after denial: %v", err)
			}
			if r.State() == domain.RecognitionListening {
				t.Fatal("recognizer reached listening after permission denial")
			}
			if tt.mic.acquired != tt.mic.released {
				t.Fatalf("microphone acquired %d, released %d", tt.mic.acquired, tt.mic.released)
			}
		})
	}
}

func TestRecognizerUnsupported(t *testing.T) {
	r := newTestRecognizer(nil, nil)

	if err := r.Start(context.Background()); !errors.Is(err, domain.ErrRecognitionUnsupported) {
		t.Fatalf("expected ErrRecognitionUnsupported, got %v", err)
	}
	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
}

func TestRecognizerFatalErrorGoesIdle(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)
	_ = r.Start(context.Background())

	err := r.HandleError(domain.CodeNetwork)
	var rerr *domain.RecognitionError
	if !errors.As(err, &rerr) || rerr.Code != domain.CodeNetwork {
		t.Fatalf("expected network recognition error, got %v", err)
	}
	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
	if r.Disabled() != nil {
		t.Fatalf("network error should not disable recognition, got %v", r.Disabled())
	}

	// The end of the failed session must not restart anything.
	_ = r.HandleEnd()
	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle after end, got %s", r.State())
	}
}

func TestRecognizerStopIsIdempotent(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)

	r.Stop()
	_ = r.Start(context.Background())
	r.Stop()
	r.Stop()

	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
	want := []string{"start", "stop"}
	if !reflect.DeepEqual(capability.calls, want) {
		t.Fatalf("calls = %v, want %v", capability.calls, want)
	}
}

func TestRecognizerStopCancelsRecovery(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)
	_ = r.Start(context.Background())
	_ = r.HandleError(domain.CodeNoSpeech)

	r.Stop()
	_ = r.HandleEnd()

	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
	want := []string{"start", "stop"}
	if !reflect.DeepEqual(capability.calls, want) {
		t.Fatalf("calls = %v, want %v", capability.calls, want)
	}
}

func TestRecognizerDefersStartUntilEnd(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)
	_ = r.Start(context.Background())
	r.Stop()

	// Restarting before the stopped session reported its end must not
	// start a second session.
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.State() != domain.RecognitionRecovering {
		t.Fatalf("expected recovering, got %s", r.State())
	}
	if !reflect.DeepEqual(capability.calls, []string{"start", "stop"}) {
		t.Fatalf("calls = %v, want [start stop]", capability.calls)
	}

	_ = r.HandleEnd()
	if r.State() != domain.RecognitionListening {
		t.Fatalf("expected listening, got %s", r.State())
	}
	if !reflect.DeepEqual(capability.calls, []string{"start", "stop", "start"}) {
		t.Fatalf("calls = %v, want [start stop start]", capability.calls)
	}
}

func TestRecognizerRestartCount(t *testing.T) {
	tests := []struct {
		name string
		run  func(r *Recognizer)
		want int
	}{
		{"deferred start after stop", func(r *Recognizer) {
			r.Stop()
			_ = r.Start(context.Background())
			_ = r.HandleEnd()
		}, 0},
		{"transient error", func(r *Recognizer) {
			_ = r.HandleError(domain.CodeNoSpeech)
			_ = r.HandleEnd()
		}, 1},
		{"unexpected end", func(r *Recognizer) {
			_ = r.HandleEnd()
		}, 1},
		{"recovery cancelled then restarted by hand", func(r *Recognizer) {
			_ = r.HandleError(domain.CodeAudioCapture)
			r.Stop()
			_ = r.Start(context.Background())
			_ = r.HandleEnd()
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hooks := 0
			r := NewRecognizer(&fakeCapability{}, logger.New(logger.LevelOff, nil), WithRestartHook(func() { hooks++ }))
			_ = r.Start(context.Background())

			tt.run(r)

			if r.State() != domain.RecognitionListening {
				t.Fatalf("state = %s, want listening", r.State())
			}
			if r.Restarts() != tt.want || hooks != tt.want {
				t.Errorf("restarts = %d (hook %d), want %d", r.Restarts(), hooks, tt.want)
			}
		})
	}
}

func TestRecognizerUnexpectedEndRestarts(t *testing.T) {
	capability := &fakeCapability{}
	r := newTestRecognizer(capability, nil)
	_ = r.Start(context.Background())

	_ = r.HandleEnd()
	if r.State() != domain.RecognitionListening {
		t.Fatalf("expected listening, got %s", r.State())
	}
	if !reflect.DeepEqual(capability.calls, []string{"start", "start"}) {
		t.Fatalf("calls = %v, want [start start]", capability.calls)
	}
}

func TestRecognizerHandlePhrase(t *testing.T) {
	r := newTestRecognizer(&fakeCapability{}, nil)

	if _, ok := r.HandlePhrase(domain.PhraseRecognized{Text: "continue", Final: true}); ok {
		t.Fatal("phrase accepted while idle")
	}

	_ = r.Start(context.Background())
	if _, ok := r.HandlePhrase(domain.PhraseRecognized{Text: "conti", Final: false}); ok {
		t.Fatal("interim phrase accepted")
	}
	text, ok := r.HandlePhrase(domain.PhraseRecognized{Text: "continue", Final: true})
	if !ok || text != "continue" {
		t.Fatalf("got %q, %v; want continue, true", text, ok)
	}
}

func TestRecognizerCloseReleasesMicrophone(t *testing.T) {
	mic := &fakeMic{}
	r := newTestRecognizer(&fakeCapability{}, mic)
	_ = r.Start(context.Background())

	r.Close()
	r.Close()
	if mic.released != 1 {
		t.Fatalf("microphone released %d times, want 1", mic.released)
	}
	if r.State() != domain.RecognitionIdle {
		t.Fatalf("expected idle, got %s", r.State())
	}
}
