package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics expose les compteurs du pipeline; les scrapers cassent sans
// prévenir, autant le voir sur un dashboard. Registry dédié pour rester
// ré-instanciable (tests).
type Metrics struct {
	Registry *prometheus.Registry

	DetailFetches *prometheus.CounterVec
	Resolves      *prometheus.CounterVec
	Sessions      prometheus.Counter
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		DetailFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anibridge_detail_fetch_total",
			Help: "Detail fetches by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Resolves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "anibridge_resolve_total",
			Help: "Stream resolutions by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Sessions: factory.NewCounter(prometheus.CounterOpts{
			Name: "anibridge_sessions_started_total",
			Help: "Playback sessions started.",
		}),
	}
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
