package recipe

import (
	"reflect"
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"flour, eggs ,milk", []string{"flour", "eggs", "milk"}},
		{"  salt  ", []string{"salt"}},
		{"a,,b, ,", []string{"a", "b"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SplitList(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("SplitList(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSegments(t *testing.T) {
	r := &domain.Recipe{
		Name:        "Pancakes",
		Chef:        "Ana",
		Ingredients: "flour, eggs, milk",
		Steps:       "whisk everything, rest for ten minutes., fry in butter",
	}

	want := []string{
		"This is the Pancakes recipe from Ana.",
		"Here are the ingredients. flour, eggs, milk.",
		"And now the steps for preparation. Whisk everything. Rest for ten minutes. Fry in butter.",
	}
	if got := Segments(r); !reflect.DeepEqual(got, want) {
		t.Fatalf("Segments =\n%q\nwant\n%q", got, want)
	}
}

func TestSegmentsSkipsEmptyFields(t *testing.T) {
	tests := []struct {
		name   string
		recipe *domain.Recipe
		want   int
	}{
		{"nil", nil, 0},
		{"empty", &domain.Recipe{}, 0},
		{"intro only", &domain.Recipe{Name: "Toast"}, 1},
		{"no steps", &domain.Recipe{Name: "Salad", Ingredients: "leaves"}, 2},
		{"blank lists", &domain.Recipe{Name: "Air", Ingredients: " , ", Steps: ","}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(Segments(tt.recipe)); got != tt.want {
				t.Fatalf("got %d segments, want %d", got, tt.want)
			}
		})
	}
}

func TestSegmentsUnknownChef(t *testing.T) {
	segs := Segments(&domain.Recipe{Name: "Toast"})
	if segs[0] != "This is the Toast recipe from an unknown chef." {
		t.Fatalf("intro = %q", segs[0])
	}
}
