package display

import (
	"strings"
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

func TestTitleFor(t *testing.T) {
	tests := []struct {
		name string
		st   domain.Status
		want string
	}{
		{"empty", domain.Status{}, "OttoRead"},
		{"loaded", domain.Status{RecipeName: "Banana Bread", Total: 5}, "OttoRead | Banana Bread"},
		{"playing", domain.Status{RecipeName: "Banana Bread", Total: 5, Cursor: 2, Player: domain.PlayerSpeakingSegment}, "OttoRead | Banana Bread 3/5"},
	}
	for _, tt := range tests {
		if got := titleFor(tt.st); got != tt.want {
			t.Errorf("%s: titleFor = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestRenderBar(t *testing.T) {
	st := domain.Status{
		Rate:        1.5,
		Recognition: domain.RecognitionListening,
		VoiceInput:  true,
		Player:      domain.PlayerAwaitingCommand,
		Cursor:      1,
		Total:       4,
		Voice:       "Ryan (Male)",
		RecipeName:  "Chicken Alfredo",
		Categories:  []string{"Pasta", "Dinner"},
	}

	bar := renderBar(st, 200)
	for _, want := range []string{
		"Chicken Alfredo",
		"Pasta, Dinner",
		"2/4",
		"waiting for you",
		"listening",
		"speed",
		"1.5",
		"Ryan (Male)",
	} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar missing %q: %s", want, bar)
		}
	}
}

func TestRenderBarIdle(t *testing.T) {
	bar := renderBar(domain.Status{Rate: 1}, 200)
	for _, want := range []string{"no recipe", "stopped", "mic off", "speed", "1.0", "default voice"} {
		if !strings.Contains(bar, want) {
			t.Errorf("status bar missing %q: %s", want, bar)
		}
	}
	if strings.Contains(bar, "part ") {
		t.Error("idle bar should not show a position")
	}
}

func TestMicLabel(t *testing.T) {
	tests := []struct {
		st   domain.Status
		want string
	}{
		{domain.Status{VoiceInput: false, Recognition: domain.RecognitionListening}, "mic off"},
		{domain.Status{VoiceInput: true, Recognition: domain.RecognitionRecovering}, "mic recovering"},
		{domain.Status{VoiceInput: true}, "mic idle"},
	}
	for _, tt := range tests {
		if got := micLabel(tt.st); !strings.Contains(got, tt.want) {
			t.Errorf("micLabel(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}
}

func TestCenterBlock(t *testing.T) {
	out := centerBlock("ab\nabcd\n", 10)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "   ") || strings.HasPrefix(l, "    ") {
			t.Errorf("expected 3 columns of padding, got %q", l)
		}
	}

	if got := centerBlock("wide art", 4); strings.HasPrefix(got, " ") {
		t.Errorf("art wider than the terminal should not be padded: %q", got)
	}
	if got := centerBlock("", 80); got != "" {
		t.Errorf("empty art should render nothing, got %q", got)
	}
}
