package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	ioutils "github.com/handiism/screen-recorder/internal/io"
)

// Client downloads recordings from their retrieval addresses.
//
// Example usage:
//
//	client := NewClient()
//	err := client.DownloadFile(ctx, rec.DownloadURL, "/tmp/demo.mp4", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 10 minute timeout, enough for large recordings
//   - "screenrec" User-Agent header
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		userAgent: "screenrec",
	}
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes, -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// DownloadFile streams url into destPath.
//
// The content is written to a pending file that only replaces destPath
// once the whole body arrived, so an interrupted download never leaves a
// truncated recording behind. onProgress may be nil.
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return CopyAtomic(resp.Body, resp.ContentLength, destPath, onProgress)
}

// CopyAtomic writes src to destPath through a pending file and reports
// progress against total.
func CopyAtomic(src io.Reader, total int64, destPath string, onProgress func(written, total int64)) error {
	file, err := ioutils.CreateAtomic(destPath)
	if err != nil {
		return err
	}
	defer file.Cleanup()

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    total,
			OnUpdate: onProgress,
		}
	}

	if _, err := io.Copy(writer, src); err != nil {
		return err
	}
	return file.CloseAtomicallyReplace()
}
