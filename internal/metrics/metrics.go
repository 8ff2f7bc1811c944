// Package metrics records import runs as Prometheus metrics. The importer is a batch job, so
// the collected values are pushed to a Pushgateway when a run ends instead of being scraped.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"attendanceingest/internal/domain"
)

const namespace = "attendance_import"

// ImportMetrics implements services.ImportMetrics on its own registry.
type ImportMetrics struct {
	registry *prometheus.Registry

	rowsTotal       *prometheus.CounterVec
	peopleCreated   prometheus.Counter
	runsTotal       *prometheus.CounterVec
	attendanceTotal *prometheus.CounterVec
	referralsTotal  prometheus.Counter
	reconnectsTotal prometheus.Counter
	runDuration     prometheus.Histogram
	lastSuccess     *prometheus.GaugeVec
	eventAttendance *prometheus.GaugeVec
}

func NewImportMetrics() *ImportMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &ImportMetrics{
		registry: reg,
		rowsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows resolved to a person, by match strategy.",
		}, []string{"strategy"}),
		peopleCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "people_created_total",
			Help:      "People created because no existing person matched.",
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Import runs, by result.",
		}, []string{"result"}),
		attendanceTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attendance_records_total",
			Help:      "Attendance rows handled, by whether they were inserted or already present.",
		}, []string{"outcome"}),
		referralsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "referrals_credited_total",
			Help:      "Referral credits given to referrers.",
		}),
		reconnectsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Storage sessions reopened after a lost connection.",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of import runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run, by event.",
		}, []string{"event_id"}),
		eventAttendance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "event_attendance",
			Help:      "Checked-in attendance of the event after the last successful run.",
		}, []string{"event_id"}),
	}
}

func (m *ImportMetrics) RowResolved(strategy string, created bool) {
	m.rowsTotal.WithLabelValues(strategy).Inc()
	if created {
		m.peopleCreated.Inc()
	}
}

func (m *ImportMetrics) RunFinished(result *domain.ImportResult, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	if result == nil {
		return
	}
	m.attendanceTotal.WithLabelValues("inserted").Add(float64(result.AttendanceInserted))
	m.attendanceTotal.WithLabelValues("existing").Add(float64(result.AttendanceExisting))
	m.referralsTotal.Add(float64(result.ReferralsCredited))
	m.reconnectsTotal.Add(float64(result.Reconnects))
	m.runDuration.Observe(result.Duration.Seconds())
	if err == nil {
		event := fmt.Sprint(result.EventID)
		m.lastSuccess.WithLabelValues(event).Set(float64(result.StartedAt.Add(result.Duration).Unix()))
		m.eventAttendance.WithLabelValues(event).Set(float64(result.EventAttendance))
	}
}

// Registry exposes the collected metrics, mainly for tests.
func (m *ImportMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends everything collected so far to the Pushgateway at url under job, replacing the
// job's previous metrics.
func (m *ImportMetrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
