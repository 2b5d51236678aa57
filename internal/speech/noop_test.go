package speech

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

func TestTextMouth(t *testing.T) {
	var (
		mu      sync.Mutex
		printed []string
	)
	write := func(text string) {
		mu.Lock()
		printed = append(printed, text)
		mu.Unlock()
	}

	sink := newSink()
	tm := NewTextMouth(write, sink, logger.New(logger.LevelOff, nil))

	tm.Speak(domain.Utterance{ID: 1, Text: "dropped"})
	tm.CancelAll()
	tm.Speak(domain.Utterance{ID: 2, Text: "intro"})
	tm.Speak(domain.Utterance{ID: 3, Text: "prompt", Kind: domain.UtterancePrompt})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)

	expectEnd(t, sink, 2)
	expectEnd(t, sink, 3)
	sink.none(t, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(printed) != 2 || printed[0] != "intro" || printed[1] != "prompt" {
		t.Errorf("unexpected printed lines %v", printed)
	}
}

func TestTextMouthNilPrint(t *testing.T) {
	sink := newSink()
	tm := NewTextMouth(nil, sink, logger.New(logger.LevelOff, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tm.Start(ctx)

	tm.Speak(domain.Utterance{ID: 9, Text: "quiet"})
	expectEnd(t, sink, 9)
}
