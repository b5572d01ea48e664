// Package metrics exposes the service's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the counters the API and worker update.
type Metrics struct {
	Logins           *prometheus.CounterVec
	Submissions      *prometheus.CounterVec
	ReminderAlerts   *prometheus.CounterVec
	RecordsProcessed *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewlog",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		Submissions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewlog",
			Name:      "form_submissions_total",
			Help:      "Form submit and confirm calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		ReminderAlerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewlog",
			Name:      "reminder_alerts_total",
			Help:      "Reminders served with an alert, by level.",
		}, []string{"level"}),
		RecordsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewlog",
			Name:      "worker_records_total",
			Help:      "Records checked by the worker, by resulting status.",
		}, []string{"status"}),
	}
}

// Nop returns counters bound to a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}
