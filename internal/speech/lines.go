package speech

// lines.go centralises the user-facing strings of the command line.
// Keep lines short and direct.

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

// ── Greeting / Global ────────────────────────────────────────────

var welcomes = []string{
	"Hello. Load a recipe and say play.",
	"Ready when you are. Load a recipe and say play.",
	"Pick a recipe, then say play.",
}

// LineWelcome returns a random greeting.
func LineWelcome() string {
	return welcomes[rand.Intn(len(welcomes))]
}

func LineBye() string {
	return "Bye."
}

func LineVoiceDisabled() string {
	return "Voice commands are off. Type play, continue, repeat, start over or stop."
}

// ── Recipes ──────────────────────────────────────────────────────

func LineRecipeLoaded(name string, segments int) string {
	return fmt.Sprintf("Loaded %s (%d parts). Say play to start.", name, segments)
}

func LineRecipeFailed(id string, err error) string {
	return fmt.Sprintf("Could not load recipe %q: %v", id, err)
}

// LineRecipeList formats recipe summaries, one per line.
func LineRecipeList(list []domain.RecipeSummary) string {
	if len(list) == 0 {
		return "No recipes available."
	}
	var b strings.Builder
	b.WriteString("Recipes:")
	for _, r := range list {
		fmt.Fprintf(&b, "\n  %-22s %s", r.ID, r.Name)
		if r.Chef != "" {
			fmt.Fprintf(&b, " (%s)", r.Chef)
		}
	}
	return b.String()
}

// ── Rate / Voice ─────────────────────────────────────────────────

func LineRate(rate float64) string {
	return fmt.Sprintf("Speed: %.1f", rate)
}

func LineVoiceSelected(v domain.Voice) string {
	return fmt.Sprintf("Voice: %s [%s]", v.Name, v.Locale)
}

func LineNoVoice(locale, hint string) string {
	return fmt.Sprintf("No %s voice for %s.", hint, locale)
}

// LineVoiceList formats the voice catalog, marking the voice whose name
// is selected.
func LineVoiceList(voices []domain.Voice, selected string) string {
	if len(voices) == 0 {
		return "No voices listed yet."
	}
	var b strings.Builder
	b.WriteString("Voices:")
	for _, v := range voices {
		mark := " "
		if v.Name == selected {
			mark = "*"
		}
		fmt.Fprintf(&b, "\n %s %-7s %s", mark, v.Locale, v.Name)
	}
	return b.String()
}

// ── Input ────────────────────────────────────────────────────────

func LineUnknown(input string) string {
	return fmt.Sprintf("Didn't catch %q. Type help for commands.", input)
}

func LineHelp() string {
	return strings.Join([]string{
		"Voice or typed commands:",
		"  play            start narration",
		"  continue        next part",
		"  repeat          say the current part again",
		"  start over      back to the intro",
		"  stop            end narration",
		"Typed only:",
		"  + / faster      speak faster",
		"  - / slower      speak slower",
		"  voice <uk|us|au> <male|female>",
		"  voices          list voices",
		"  recipes         list recipes",
		"  load <id>       load a recipe",
		"  reload <id>     fetch a recipe again",
		"  help            this list",
		"  quit            exit",
	}, "\n")
}
