// Package metrics exposes Prometheus instruments for the recording lifecycle.
//
// Instruments are registered with the default registry on import and are
// served by promhttp on the HTTP server's /metrics route. Callers record
// outcomes through small helpers:
//
//	metrics.RecordUpload(info.Size, time.Since(started).Seconds(), err)
//	metrics.IncAddressResolution(err)
//	metrics.RecordRecordingsListed(len(recs))
package metrics
