// Package metrics exposes Prometheus collectors for the sentinel main loop
// and its command surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals // Collectors are registered once per process.
var (
	// Main loop.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_ticks_total",
		Help: "Total number of evaluated ticks",
	})

	TicksSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_ticks_skipped_total",
		Help: "Ticks skipped because no reading was available",
	})

	StaleReadingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_stale_readings_total",
		Help: "Ticks evaluated on a stale reading",
	})

	// Exposed state.
	PowerOK = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_power_ok",
		Help: "1 while external power is present",
	})

	UPSOK = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_ups_power_ok",
		Help: "1 while UPS power is present",
	})

	Pressure = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_pressure_mbar",
		Help: "Latest pressure reading in mbar",
	})

	Threshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_pressure_threshold_mbar",
		Help: "Pressure alarm threshold in mbar",
	})

	Armed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_armed",
		Help: "1 while notifications are permitted",
	})

	AlarmActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_alarm_active",
		Help: "1 while the alarm condition holds",
	})

	// Notifications and commands.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_total",
			Help: "Notification attempts by kind and result",
		},
		[]string{"kind", "result"}, // kind: alarm, test; result: sent, failed
	)

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_commands_total",
			Help: "Remote commands by name and result",
		},
		[]string{"command", "result"}, // result: ok, invalid, throttled
	)
)

// Bool converts a flag into a gauge value.
func Bool(b bool) float64 {
	if b {
		return 1
	}

	return 0
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
