package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records the outcome of price reconciliation runs.
type ReconcileMetrics struct {
	runDuration *prometheus.HistogramVec
	checked     *prometheus.CounterVec
	anomalies   *prometheus.CounterVec
	pushes      *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_run_duration_seconds",
		Help:    "Duration of price reconciliation runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"marketplace"})
	checked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_products_checked",
		Help: "Products checked against marketplace prices.",
	}, []string{"marketplace"})
	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_anomalies",
		Help: "Price anomalies found, labelled by classification.",
	}, []string{"marketplace", "status"})
	pushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_pushes",
		Help: "Price corrections pushed to the marketplace.",
	}, []string{"marketplace", "result"})
	reg.MustRegister(runDuration, checked, anomalies, pushes)
	return &ReconcileMetrics{
		runDuration: runDuration,
		checked:     checked,
		anomalies:   anomalies,
		pushes:      pushes,
	}
}

// ObserveRun records the duration of one reconciliation run.
func (r *ReconcileMetrics) ObserveRun(marketplace string, duration time.Duration) {
	if r == nil || r.runDuration == nil {
		return
	}
	r.runDuration.WithLabelValues(normalizeLabel(marketplace)).Observe(duration.Seconds())
}

// AddChecked increments the checked-products counter.
func (r *ReconcileMetrics) AddChecked(marketplace string, n int) {
	if r == nil || r.checked == nil {
		return
	}
	r.checked.WithLabelValues(normalizeLabel(marketplace)).Add(float64(n))
}

// IncAnomaly increments the anomaly counter for a classification.
func (r *ReconcileMetrics) IncAnomaly(marketplace, status string) {
	if r == nil || r.anomalies == nil {
		return
	}
	r.anomalies.WithLabelValues(normalizeLabel(marketplace), normalizeLabel(status)).Inc()
}

// IncPush increments the push counter with the result label.
func (r *ReconcileMetrics) IncPush(marketplace, result string) {
	if r == nil || r.pushes == nil {
		return
	}
	r.pushes.WithLabelValues(normalizeLabel(marketplace), normalizeLabel(result)).Inc()
}
