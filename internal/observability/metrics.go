// Package observability provides Prometheus metrics for monitoring callvault.
package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcome label values.
const (
	UploadStored       = "stored"        // audio written to disk and record persisted
	UploadMetadataOnly = "metadata_only" // record persisted without audio
	UploadRejected     = "rejected"      // validation or authorization failure
	UploadFailed       = "failed"        // storage or database failure
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry

	UploadsTotal       *prometheus.CounterVec
	UploadBytes        prometheus.Counter
	RecordingsSwept    prometheus.Counter
	SweepMissingFiles  prometheus.Counter
	ContactsBackfilled prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all collectors registered
// on a private registry.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		UploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "callvault_uploads_total",
			Help: "Total number of upload requests by outcome.",
		}, []string{"result"}),
		UploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callvault_upload_bytes_total",
			Help: "Total number of audio bytes written to the upload directory.",
		}),
		RecordingsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callvault_recordings_swept_total",
			Help: "Total number of recordings removed by the retention sweep.",
		}),
		SweepMissingFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callvault_sweep_missing_files_total",
			Help: "Number of swept recordings whose audio file was already gone.",
		}),
		ContactsBackfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "callvault_contacts_backfilled_total",
			Help: "Total number of recordings whose caller name was backfilled.",
		}),
	}

	collectors := []prometheus.Collector{
		m.UploadsTotal,
		m.UploadBytes,
		m.RecordingsSwept,
		m.SweepMissingFiles,
		m.ContactsBackfilled,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics collector: %w", err)
		}
	}

	return m, nil
}

// RegisterHandlers registers the /metrics route on the given mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
