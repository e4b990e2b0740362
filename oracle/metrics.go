package oracle

import "github.com/prometheus/client_golang/prometheus"

// Metrics instruments the participant loop. Pass a nil registerer to keep
// them unregistered, tests do.
type Metrics struct {
	Ticks        prometheus.Counter
	TickFailures prometheus.Counter
	Actions      *prometheus.CounterVec
	SubmitErrors *prometheus.CounterVec
	FeedErrors   prometheus.Counter
	Height       prometheus.Gauge
	Epoch        prometheus.Gauge
	Phase        prometheus.Gauge
	Consensus    prometheus.Gauge
	Datapoints   prometheus.Gauge
}

const metricsNamespace = "oraclepool"

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "ticks_total",
			Help:      "Iterations of the participant loop.",
		}),
		TickFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tick_failures_total",
			Help:      "Ticks that ended in an error.",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "actions_total",
			Help:      "Actions selected per tick.",
		}, []string{"kind"}),
		SubmitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "submit_errors_total",
			Help:      "Failed submissions by error class.",
		}, []string{"class"}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "feed_errors_total",
			Help:      "Price fetches that failed and skipped a commit.",
		}),
		Height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "height",
			Help:      "Chain height at the last tick.",
		}),
		Epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "epoch",
			Help:      "Pool epoch counter at the last tick.",
		}),
		Phase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "phase",
			Help:      "Epoch phase at the last tick (0 collecting, 1 awaiting refresh, 2 expired).",
		}),
		Consensus: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "consensus_price",
			Help:      "Consensus preview over the eligible datapoints.",
		}),
		Datapoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "datapoints",
			Help:      "Eligible datapoints for the current epoch.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Ticks, m.TickFailures, m.Actions, m.SubmitErrors, m.FeedErrors,
			m.Height, m.Epoch, m.Phase, m.Consensus, m.Datapoints,
		)
	}
	return m
}
