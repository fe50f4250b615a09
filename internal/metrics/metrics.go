package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"eventscan/internal/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "eventscan"

var (
	once sync.Once

	runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scan invocations by outcome.",
		},
		[]string{"outcome"},
	)

	runDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock time of a scan invocation.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	bookingsScanned = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bookings_scanned",
			Help:      "Bookings found in each date bucket by the last run.",
		},
		[]string{"bucket"},
	)

	payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_total",
			Help:      "Provider payouts by result.",
		},
		[]string{"result"},
	)

	charges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "charges_total",
			Help:      "Customer charges by result.",
		},
		[]string{"result"},
	)

	alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Admin alerts raised by kind.",
		},
		[]string{"kind"},
	)
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{runs, runDuration, bookingsScanned, payouts, charges, alerts}
}

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(collectors()...)
	})
}

// ObserveRun records the result and duration of one invocation.
func ObserveRun(outcome string, elapsed time.Duration) {
	runs.WithLabelValues(outcome).Inc()
	runDuration.Observe(elapsed.Seconds())
}

func SetBucketSize(bucket string, n int) {
	bookingsScanned.WithLabelValues(bucket).Set(float64(n))
}

func IncAlert(kind string) {
	alerts.WithLabelValues(kind).Inc()
}

// Subscribe counts payment outcomes published on the bus.
func Subscribe(bus *events.EventBus) {
	count := func(vec *prometheus.CounterVec, result string) events.EventHandler {
		return func(*events.Event) error {
			vec.WithLabelValues(result).Inc()
			return nil
		}
	}

	bus.Subscribe(events.EventPayoutCompleted, count(payouts, "completed"))
	bus.Subscribe(events.EventPayoutFailed, count(payouts, "failed"))
	bus.Subscribe(events.EventChargeCompleted, count(charges, "completed"))
	bus.Subscribe(events.EventChargeFailed, count(charges, "failed"))
	bus.Subscribe(events.EventPaymentMethodRequired, count(charges, "payment_method_required"))
}

// Push sends the collectors to a Pushgateway; a batch run ends before any scrape.
func Push(ctx context.Context, url, job string) error {
	pusher := push.New(url, job)
	for _, c := range collectors() {
		pusher = pusher.Collector(c)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
