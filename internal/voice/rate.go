package voice

import (
	"math"
	"sync"
)

// Speech rate bounds and step.
const (
	MinRate     = 0.1
	MaxRate     = 10.0
	RateStep    = 0.1
	DefaultRate = 1.0
)

// Rate is the bounded speech rate applied to every utterance dispatched
// after it changes. Values stay on the 0.1 grid so that an increase
// followed by a decrease lands back where it started. Safe for concurrent use.
type Rate struct {
	mu    sync.RWMutex
	value float64
}

// NewRate creates a rate controller at DefaultRate.
func NewRate() *Rate {
	return &Rate{value: DefaultRate}
}

// Value returns the current rate.
func (r *Rate) Value() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Increase raises the rate by one step, up to MaxRate, and returns it.
func (r *Rate) Increase() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = math.Min(roundStep(r.value+RateStep), MaxRate)
	return r.value
}

// Decrease lowers the rate by one step, down to MinRate, and returns it.
func (r *Rate) Decrease() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.value = math.Max(roundStep(r.value-RateStep), MinRate)
	return r.value
}

func roundStep(v float64) float64 {
	return math.Round(v*10) / 10
}
