package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/handiism/screen-recorder/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestRecordUpload(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "success", err: nil, want: `screenrec_uploads_total{result="success"}`},
		{name: "failure", err: errors.New("boom"), want: `screenrec_uploads_total{result="failure"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics.RecordUpload(1024, 0.5, tt.err)
			if body := scrape(t); !strings.Contains(body, tt.want) {
				t.Errorf("metrics output missing %s", tt.want)
			}
		})
	}
}

func TestMetadataAndCaptureCounters(t *testing.T) {
	metrics.IncEmptyRecording()
	metrics.IncThumbnailFailure()
	metrics.IncMetadataWrite(nil)
	metrics.IncAddressResolution(errors.New("missing"))
	metrics.RecordRecordingsListed(3)
	metrics.IncCaptureSession("denied")

	body := scrape(t)
	for _, want := range []string{
		`screenrec_uploads_total{result="empty"}`,
		`screenrec_thumbnail_failures_total`,
		`screenrec_metadata_writes_total{result="success"}`,
		`screenrec_address_resolutions_total{result="failure"}`,
		`screenrec_recordings_listed 3`,
		`screenrec_capture_sessions_total{result="denied"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}
