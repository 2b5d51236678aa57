package recipe

import (
	"context"
	"errors"
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

func newTestSource() *MemorySource {
	src := NewEmptyMemorySource(logger.New(logger.LevelOff, nil))
	src.Add(&domain.Recipe{ID: "soup", Name: "Tomato Soup", Chef: "Ana", Ingredients: "tomatoes, salt", Steps: "simmer, blend"}, "Starter", "Winter")
	src.Add(&domain.Recipe{ID: "cake", Name: "Apple Cake", Chef: "Bo", Ingredients: "apples", Steps: "bake"})
	return src
}

func TestMemorySourceListSortedByName(t *testing.T) {
	list, err := newTestSource().List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != "cake" || list[1].ID != "soup" {
		t.Fatalf("List = %+v, want cake then soup", list)
	}
}

func TestMemorySourceAddReplaces(t *testing.T) {
	src := newTestSource()
	src.Add(&domain.Recipe{ID: "cake", Name: "Carrot Cake"})

	r, err := src.Get(context.Background(), "cake")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Name != "Carrot Cake" {
		t.Errorf("Name = %q, want replaced recipe", r.Name)
	}
	if list, _ := src.List(context.Background()); len(list) != 2 {
		t.Errorf("List has %d recipes, want 2", len(list))
	}
}

func TestMemorySourceGetIsolated(t *testing.T) {
	src := newTestSource()
	ctx := context.Background()

	r, _ := src.Get(ctx, "soup")
	r.Name = "edited"

	again, _ := src.Get(ctx, "soup")
	if again.Name != "Tomato Soup" {
		t.Fatalf("caller edit leaked into source: %q", again.Name)
	}
	if _, err := src.Get(ctx, "stew"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get(stew) err = %v, want ErrNotFound", err)
	}
}

func TestMemorySourceCategories(t *testing.T) {
	src := newTestSource()
	ctx := context.Background()

	tests := []struct {
		id      string
		want    []string
		wantErr error
	}{
		{"soup", []string{"Starter", "Winter"}, nil},
		{"cake", nil, nil},
		{"stew", nil, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := src.Categories(ctx, tt.id)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Categories = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("Categories = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

// Every built-in recipe has to narrate as intro, ingredients and steps.
func TestSeededRecipesNarrate(t *testing.T) {
	src := NewMemorySource(logger.New(logger.LevelOff, nil))
	ctx := context.Background()

	list, err := src.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) == 0 {
		t.Fatal("no built-in recipes")
	}
	for _, sum := range list {
		r, err := src.Get(ctx, sum.ID)
		if err != nil {
			t.Fatalf("Get(%s): %v", sum.ID, err)
		}
		if n := len(Segments(r)); n != 3 {
			t.Errorf("%s: %d segments, want 3", sum.ID, n)
		}
	}
}
