// Package metrics exposes Prometheus instruments for the narration engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the engine's instruments on a private registry, so
// several engines (or tests) never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	Commands           *prometheus.CounterVec
	Utterances         *prometheus.CounterVec
	RecognizerRestarts prometheus.Counter
	RecognitionErrors  *prometheus.CounterVec
	RecipeFetch        *prometheus.HistogramVec
	Rate               prometheus.Gauge
	PlayerState        prometheus.Gauge
}

// New creates and registers every instrument.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ottoread_commands_total",
				Help: "Voice and typed commands routed, by command",
			},
			[]string{"command"},
		),

		Utterances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ottoread_utterances_total",
				Help: "Utterances dispatched to the synthesizer, by kind",
			},
			[]string{"kind"},
		),

		RecognizerRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "ottoread_recognizer_restarts_total",
				Help: "Automatic speech recognition restarts",
			},
		),

		RecognitionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ottoread_recognition_errors_total",
				Help: "Recognition errors reported by the capability, by code",
			},
			[]string{"code"},
		),

		RecipeFetch: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ottoread_recipe_fetch_duration_seconds",
				Help:    "Recipe load latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),

		Rate: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ottoread_speech_rate",
				Help: "Current speech rate multiplier",
			},
		),

		PlayerState: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "ottoread_player_state",
				Help: "Narration player state (0 idle, 1 segment, 2 prompt, 3 awaiting command)",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
