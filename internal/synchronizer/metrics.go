package synchronizer

import "github.com/prometheus/client_golang/prometheus"

// Result label values.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

type metrics struct {
	refreshTotal    *prometheus.CounterVec
	refreshSkipped  prometheus.Counter
	refreshDuration prometheus.Histogram
	devices         prometheus.Gauge
	commandsTotal   *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		refreshTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubsync_refresh_total",
				Help: "Discovery passes by result.",
			},
			[]string{"result"},
		),
		refreshSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "hubsync_refresh_skipped_total",
				Help: "Scheduled passes skipped because a pass was already running.",
			},
		),
		refreshDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "hubsync_refresh_duration_seconds",
				Help:    "Duration of discovery passes.",
				Buckets: prometheus.DefBuckets,
			},
		),
		devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "hubsync_devices",
				Help: "Devices in the current snapshot.",
			},
		),
		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hubsync_commands_total",
				Help: "Commands applied by intent and result.",
			},
			[]string{"command", "result"},
		),
	}
	reg.MustRegister(m.refreshTotal)
	reg.MustRegister(m.refreshSkipped)
	reg.MustRegister(m.refreshDuration)
	reg.MustRegister(m.devices)
	reg.MustRegister(m.commandsTotal)
	return m
}

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}
