package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	JudgeRequests   *prometheus.CounterVec
	JudgeLatency    prometheus.Histogram
	JudgeRetries    prometheus.Counter
	QueueSize       prometheus.Gauge
	RoomsCreated    prometheus.Counter
	ClaimsLost      prometheus.Counter
	TurnTimeouts    prometheus.Counter
	GamesFinalized  *prometheus.CounterVec
	FinalizeSkipped prometheus.Counter
	FinalizeErrors  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		JudgeRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "judge_requests_total",
			Help:      "Judged drawings by outcome.",
		}, []string{"outcome"}),
		JudgeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "davinci",
			Name:      "judge_model_seconds",
			Help:      "Latency of vision model calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}),
		JudgeRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "judge_client_retries_total",
			Help:      "Retries issued by the judgment client.",
		}),
		QueueSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "davinci",
			Name:      "matchmaking_waiting_players",
			Help:      "Players currently waiting for a room.",
		}),
		RoomsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "rooms_created_total",
			Help:      "Rooms created from a claimed quorum.",
		}),
		ClaimsLost: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "matchmaking_claims_lost_total",
			Help:      "Quorum claims that lost the race.",
		}),
		TurnTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "turn_timeouts_total",
			Help:      "Turns advanced by the timer service.",
		}),
		GamesFinalized: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "games_finalized_total",
			Help:      "Finished games written to the analytics store.",
		}, []string{"result"}),
		FinalizeSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "finalize_duplicates_total",
			Help:      "Finalization triggers skipped because a log already existed.",
		}),
		FinalizeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "davinci",
			Name:      "finalize_errors_total",
			Help:      "Finalization attempts that failed.",
		}),
	}
}

// Discard returns metrics registered on a throwaway registry.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
