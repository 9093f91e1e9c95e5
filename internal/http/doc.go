// Package http serves recordings over HTTP and downloads them back.
//
// # Server
//
//	GET  /healthz          liveness
//	GET  /api/recordings   reloads and lists recordings as JSON
//	GET  /objects/<key>    streams a stored object, with range support
//	GET  /metrics          Prometheus metrics
//
// When the filesystem object store is configured with a base URL pointing
// at this server's /objects/ route, retrieval addresses resolve here.
//
//	srv := http.NewServer(app, objects, logger)
//	err := srv.ListenAndServe(ctx, ":8080")
//
// # Client
//
//	client := http.NewClient()
//	client.DownloadFile(ctx, rec.DownloadURL, "/tmp/demo.mp4", func(written, total int64) {
//	    fmt.Printf("%.1f%%\n", float64(written)/float64(total)*100)
//	})
//
// Downloads land in a pending file that replaces the destination only once
// complete.
package http
