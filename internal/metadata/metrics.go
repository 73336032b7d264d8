package metadata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadsTotal counts metadata reads by the source that answered.
	// Labels: source (dump, as-directory, none)
	ReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attnd",
			Subsystem: "metadata",
			Name:      "reads_total",
			Help:      "Total number of metadata reads by source",
		},
		[]string{"source"},
	)

	// WritesTotal counts metadata writes.
	// Labels: format (dump, as-directory, new-dump, dump-all), result (success, error)
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attnd",
			Subsystem: "metadata",
			Name:      "writes_total",
			Help:      "Total number of metadata writes by format and result",
		},
		[]string{"format", "result"},
	)

	// MalformedTotal counts metadata documents that failed to parse.
	// Labels: source (dump, as-directory)
	MalformedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "attnd",
			Subsystem: "metadata",
			Name:      "malformed_total",
			Help:      "Total number of unreadable metadata documents encountered",
		},
		[]string{"source"},
	)
)

// RecordRead records which source answered a read.
func RecordRead(source Source) {
	ReadsTotal.WithLabelValues(string(source)).Inc()
}

// RecordWrite records the outcome of a write in format.
func RecordWrite(format string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	WritesTotal.WithLabelValues(format, result).Inc()
}

// RecordMalformed records an unreadable document from source.
func RecordMalformed(source string) {
	MalformedTotal.WithLabelValues(source).Inc()
}
