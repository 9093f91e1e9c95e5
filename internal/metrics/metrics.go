package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upload metrics
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenrec_uploads_total",
		Help: "Recording uploads by result",
	}, []string{"result"}) // result=success|failure|empty

	uploadedBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenrec_uploaded_bytes_total",
		Help: "Total number of recording bytes committed to object storage",
	})

	uploadDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "screenrec_upload_duration_seconds",
		Help:    "Time spent uploading one recording",
		Buckets: prometheus.DefBuckets,
	})

	thumbnailFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "screenrec_thumbnail_failures_total",
		Help: "Poster frames that could not be extracted or uploaded",
	})

	// Metadata metrics
	metadataWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenrec_metadata_writes_total",
		Help: "Metadata record writes by result",
	}, []string{"result"}) // result=success|failure

	addressResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenrec_address_resolutions_total",
		Help: "Retrieval address resolutions by result",
	}, []string{"result"}) // result=success|failure

	recordingsListed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "screenrec_recordings_listed",
		Help: "Number of recordings returned by the last load",
	})

	// Capture metrics
	captureSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screenrec_capture_sessions_total",
		Help: "Capture start attempts by result",
	}, []string{"result"}) // result=started|denied|unavailable
)

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordUpload counts one finished upload attempt.
func RecordUpload(bytes int64, seconds float64, err error) {
	uploadsTotal.WithLabelValues(outcome(err == nil)).Inc()
	if err == nil {
		uploadedBytesTotal.Add(float64(bytes))
		uploadDurationSeconds.Observe(seconds)
	}
}

func IncEmptyRecording()   { uploadsTotal.WithLabelValues("empty").Inc() }
func IncThumbnailFailure() { thumbnailFailuresTotal.Inc() }

func IncMetadataWrite(err error) {
	metadataWritesTotal.WithLabelValues(outcome(err == nil)).Inc()
}

func IncAddressResolution(err error) {
	addressResolutionsTotal.WithLabelValues(outcome(err == nil)).Inc()
}

func RecordRecordingsListed(n int) { recordingsListed.Set(float64(n)) }

// IncCaptureSession counts a capture start attempt; result is one of
// started, denied or unavailable.
func IncCaptureSession(result string) {
	captureSessionsTotal.WithLabelValues(result).Inc()
}
