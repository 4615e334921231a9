package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the exemption domain.
type Metrics struct {
	SitesUpdated       prometheus.Counter
	UploadsProcessed   prometheus.Counter
	ValidationFailures prometheus.Counter
	Submissions        prometheus.Counter
}

// New creates and registers all exemption metrics.
func New() *Metrics {
	return &Metrics{
		SitesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marlin_site_details_updates_total",
			Help: "Total number of site detail mutations applied to the session aggregate",
		}),
		UploadsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marlin_uploads_processed_total",
			Help: "Total number of geometry upload batches applied",
		}),
		ValidationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marlin_validation_failures_total",
			Help: "Total number of form submissions rejected by validation",
		}),
		Submissions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "marlin_exemptions_submitted_total",
			Help: "Total number of exemption notifications submitted to the backend",
		}),
	}
}

// Nil-safe increment helpers so services can run without metrics in tests.

func (m *Metrics) IncSitesUpdated() {
	if m == nil {
		return
	}
	m.SitesUpdated.Inc()
}

func (m *Metrics) IncUploadsProcessed() {
	if m == nil {
		return
	}
	m.UploadsProcessed.Inc()
}

func (m *Metrics) IncValidationFailures() {
	if m == nil {
		return
	}
	m.ValidationFailures.Inc()
}

func (m *Metrics) IncSubmissions() {
	if m == nil {
		return
	}
	m.Submissions.Inc()
}
