package voice

import (
	"testing"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(logger.New(logger.LevelOff, nil))
	c.Refresh([]domain.Voice{
		{ID: "en-US-john", Name: "John", Locale: "en-US"},
		{ID: "en-GB-emma", Name: "Emma (female)", Locale: "en-GB"},
	})
	return c
}

func TestCatalogSelect(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		hint   string
		wantID string
	}{
		{"exact match", "en-GB", "female", "en-GB-emma"},
		{"case-insensitive hint", "en-GB", "FEMALE", "en-GB-emma"},
		{"no locale match falls back to first", "fr-FR", "male", "en-US-john"},
		{"locale match but no hint match falls back", "en-US", "female", "en-US-john"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCatalog(t)
			v, ok := c.Select(tt.locale, tt.hint)
			if !ok {
				t.Fatal("expected a voice")
			}
			if v.ID != tt.wantID {
				t.Fatalf("got %s, want %s", v.ID, tt.wantID)
			}
			sel, ok := c.Selected()
			if !ok || sel.ID != tt.wantID {
				t.Fatalf("selected = %+v (%v), want %s", sel, ok, tt.wantID)
			}
		})
	}
}

func TestCatalogSelectEmpty(t *testing.T) {
	c := NewCatalog(logger.New(logger.LevelOff, nil))
	if _, ok := c.Select("en-US", "male"); ok {
		t.Fatal("expected no voice from an empty catalog")
	}
	if _, ok := c.Selected(); ok {
		t.Fatal("expected no selection")
	}
}

func TestCatalogSelectionIsWeak(t *testing.T) {
	c := testCatalog(t)
	if _, ok := c.Select("en-GB", "female"); !ok {
		t.Fatal("expected a voice")
	}

	// Provider drops the voice: the selection resolves to nothing.
	c.Refresh([]domain.Voice{{ID: "en-US-john", Name: "John", Locale: "en-US"}})
	if v, ok := c.Selected(); ok {
		t.Fatalf("expected stale selection to resolve to none, got %+v", v)
	}

	// The voice comes back: the key resolves again.
	c.Refresh([]domain.Voice{
		{ID: "en-US-john", Name: "John", Locale: "en-US"},
		{ID: "en-GB-emma", Name: "Emma (female)", Locale: "en-GB"},
	})
	if v, ok := c.Selected(); !ok || v.ID != "en-GB-emma" {
		t.Fatalf("expected emma again, got %+v (%v)", v, ok)
	}
}

func TestCatalogVoicesIsCopy(t *testing.T) {
	c := testCatalog(t)
	vs := c.Voices()
	vs[0].Name = "mutated"
	if c.Voices()[0].Name != "John" {
		t.Fatal("Voices must return a copy")
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 voices, got %d", c.Len())
	}
}
