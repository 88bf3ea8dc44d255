package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/scolarite/core"
	"github.com/trezcool/scolarite/core/timetable"
)

const namespace = "scolarite"

// Metrics holds the application collectors, registered on their own registry.
type Metrics struct {
	reg *prometheus.Registry

	notifications  *prometheus.CounterVec
	scheduleRuns   prometheus.Counter
	schedulePlans  *prometheus.CounterVec
	enrollments    *prometheus.CounterVec
	gradeActions   *prometheus.CounterVec
	collections    *prometheus.GaugeVec
	requests       *prometheus.CounterVec
	requestSeconds *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications sent, by kind.",
		}, []string{"kind"}),
		scheduleRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_runs_total",
			Help:      "Greedy scheduling passes run.",
		}),
		schedulePlans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_plans_total",
			Help:      "Plans handled by scheduling passes, by outcome.",
		}, []string{"outcome"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollment_operations_total",
			Help:      "Enroll and drop operations, by operation and result.",
		}, []string{"operation", "result"}),
		gradeActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grade_actions_total",
			Help:      "Grade workflow actions, by action and result.",
		}, []string{"action", "result"}),
		collections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_records",
			Help:      "Records held per collection.",
		}, []string{"collection"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latencies, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.notifications, m.scheduleRuns, m.schedulePlans, m.enrollments,
		m.gradeActions, m.collections, m.requests, m.requestSeconds,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveSchedule records the outcome of a scheduling pass.
func (m *Metrics) ObserveSchedule(sum timetable.Summary) {
	m.scheduleRuns.Inc()
	m.schedulePlans.WithLabelValues("scheduled").Add(float64(sum.Scheduled))
	m.schedulePlans.WithLabelValues("conflict").Add(float64(sum.Conflicts))
}

func (m *Metrics) ObserveEnrollment(operation string, err error) {
	m.enrollments.WithLabelValues(operation, result(err)).Inc()
}

func (m *Metrics) ObserveGradeAction(action string, err error) {
	m.gradeActions.WithLabelValues(action, result(err)).Inc()
}

// SetCollections sets the record gauges from a collection -> count map.
func (m *Metrics) SetCollections(counts map[string]int) {
	for name, n := range counts {
		m.collections.WithLabelValues(name).Set(float64(n))
	}
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Notifier wraps next so that every notification is counted.
func (m *Metrics) Notifier(next core.Notifier) core.Notifier {
	return countingNotifier{next: next, counter: m.notifications}
}

type countingNotifier struct {
	next    core.Notifier
	counter *prometheus.CounterVec
}

func (n countingNotifier) Notify(kind core.NotificationKind, message string) {
	n.counter.WithLabelValues(string(kind)).Inc()
	if n.next != nil {
		n.next.Notify(kind, message)
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
