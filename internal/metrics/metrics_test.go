package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"attendanceingest/internal/domain"
)

// metricValue returns the counter or gauge value of the series with the given labels.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue series
				}
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func TestImportMetrics_Run(t *testing.T) {
	m := NewImportMetrics()
	m.RowResolved("email", false)
	m.RowResolved("none", true)
	m.RowResolved("none", true)

	started := time.Date(2025, 10, 17, 18, 0, 0, 0, time.UTC)
	m.RunFinished(&domain.ImportResult{
		EventID:            12,
		AttendanceInserted: 2,
		AttendanceExisting: 1,
		ReferralsCredited:  1,
		EventAttendance:    2,
		StartedAt:          started,
		Duration:           30 * time.Second,
	}, nil)

	reg := m.Registry()
	require.Equal(t, 1.0, metricValue(t, reg, "attendance_import_rows_total", map[string]string{"strategy": "email"}))
	require.Equal(t, 2.0, metricValue(t, reg, "attendance_import_rows_total", map[string]string{"strategy": "none"}))
	require.Equal(t, 2.0, metricValue(t, reg, "attendance_import_people_created_total", nil))
	require.Equal(t, 1.0, metricValue(t, reg, "attendance_import_runs_total", map[string]string{"result": "success"}))
	require.Equal(t, 2.0, metricValue(t, reg, "attendance_import_attendance_records_total", map[string]string{"outcome": "inserted"}))
	require.Equal(t, 2.0, metricValue(t, reg, "attendance_import_event_attendance", map[string]string{"event_id": "12"}))
	require.Equal(t, float64(started.Add(30*time.Second).Unix()),
		metricValue(t, reg, "attendance_import_last_success_timestamp_seconds", map[string]string{"event_id": "12"}))
}

func TestImportMetrics_FailedRunKeepsLastSuccess(t *testing.T) {
	m := NewImportMetrics()
	m.RunFinished(&domain.ImportResult{EventID: 3}, errors.New("boom"))

	require.Equal(t, 1.0, metricValue(t, m.Registry(), "attendance_import_runs_total", map[string]string{"result": "failure"}))
	mfs, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		require.NotEqual(t, "attendance_import_last_success_timestamp_seconds", mf.GetName())
	}
}

func TestImportMetrics_Push(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewImportMetrics()
	m.RowResolved("phone", false)
	require.NoError(t, m.Push(context.Background(), srv.URL, "attendance_import"))
	require.Equal(t, http.MethodPut, method)
	require.True(t, strings.HasPrefix(path, "/metrics/job/attendance_import"), path)
	require.NotEmpty(t, body)
}

func TestImportMetrics_PushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewImportMetrics().Push(context.Background(), srv.URL, "attendance_import")
	require.ErrorContains(t, err, "push metrics")
}
