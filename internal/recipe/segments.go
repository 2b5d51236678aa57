package recipe

import (
	"fmt"
	"strings"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

// Narration lines that open each segment.
const (
	IntroLine       = "This is the %s recipe from %s."
	IngredientsLine = "Here are the ingredients."
	StepsLine       = "And now the steps for preparation."
)

// SplitList splits a comma-joined provider field and trims each entry.
// Empty entries are dropped.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Segments builds the narration sequence for a recipe: an intro, the
// ingredient list and the preparation steps, in that order. A segment is
// left out when its field is empty.
func Segments(r *domain.Recipe) []string {
	if r == nil {
		return nil
	}

	var segs []string

	name := strings.TrimSpace(r.Name)
	if name != "" {
		chef := strings.TrimSpace(r.Chef)
		if chef == "" {
			chef = "an unknown chef"
		}
		segs = append(segs, fmt.Sprintf(IntroLine, name, chef))
	}

	if items := SplitList(r.Ingredients); len(items) > 0 {
		segs = append(segs, IngredientsLine+" "+strings.Join(items, ", ")+".")
	}

	if steps := SplitList(r.Steps); len(steps) > 0 {
		for i, s := range steps {
			steps[i] = sentence(s)
		}
		segs = append(segs, StepsLine+" "+strings.Join(steps, " "))
	}

	return segs
}

// sentence capitalizes s and makes sure it ends with a full stop.
func sentence(s string) string {
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
