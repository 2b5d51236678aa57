// Package voice holds the session-independent speech configuration: the
// catalog of synthesis voices and the speech rate.
package voice

import (
	"strings"
	"sync"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Catalog holds the voices the speech provider offers and the currently
// selected one. The selection is a lookup key, not a copy: if a refresh
// drops the voice, Selected reports none and the provider default is used.
// Safe for concurrent use.
type Catalog struct {
	mu       sync.RWMutex
	voices   []domain.Voice
	selected string // voice ID
	log      *logger.Logger
}

// NewCatalog creates an empty voice catalog.
func NewCatalog(log *logger.Logger) *Catalog {
	return &Catalog{log: log}
}

// Refresh replaces the catalog. Call on the provider's voice-list-changed signal.
func (c *Catalog) Refresh(voices []domain.Voice) {
	cp := make([]domain.Voice, len(voices))
	copy(cp, voices)

	c.mu.Lock()
	c.voices = cp
	c.mu.Unlock()

	c.log.Debug("voice catalog refreshed, count=%d", len(cp))
}

// Select picks the first voice whose locale equals locale exactly and
// whose display name contains genderHint (case-insensitive). If nothing
// matches, the first catalog entry is used. The second result is false
// only when the catalog is empty. The chosen voice becomes the selection.
func (c *Catalog) Select(locale, genderHint string) (domain.Voice, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.voices) == 0 {
		c.log.Warn("voice select %s/%s: no voices available", locale, genderHint)
		return domain.Voice{}, false
	}

	hint := strings.ToLower(genderHint)
	chosen := c.voices[0]
	for _, v := range c.voices {
		if v.Locale == locale && strings.Contains(strings.ToLower(v.Name), hint) {
			chosen = v
			c.selected = chosen.ID
			c.log.Info("voice selected: %s (%s)", chosen.Name, chosen.Locale)
			return chosen, true
		}
	}

	c.selected = chosen.ID
	c.log.Info("voice select %s/%s: no match, falling back to %s", locale, genderHint, chosen.Name)
	return chosen, true
}

// Selected resolves the selected voice against the current catalog.
func (c *Catalog) Selected() (domain.Voice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.selected == "" {
		return domain.Voice{}, false
	}
	for _, v := range c.voices {
		if v.ID == c.selected {
			return v, true
		}
	}
	return domain.Voice{}, false
}

// Voices returns a copy of the catalog.
func (c *Catalog) Voices() []domain.Voice {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Len returns the number of voices in the catalog.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.voices)
}
