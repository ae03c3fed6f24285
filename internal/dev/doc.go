// Package dev provides the development server behind hot updates.
//
// This package implements:
//   - File watching with debounced change batches
//   - Template serving from a directory or an S3 bucket
//   - The hot update endpoint fetched by the client pipeline
//   - A WebSocket hub that broadcasts hmr:update and relays state messages
//
// # Architecture
//
//   - Watcher: fsnotify-backed monitor that coalesces bursts of events
//   - TemplateSource: resolves a page route to server markup
//   - Hub: tracks socket clients and fans messages out
//   - Server: chi router tying the pieces together
//
// # Usage
//
//	srv, err := dev.NewServer(cfg, dev.Options{})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
//
// # Hot Update Protocol
//
// On a file change every socket client receives
//
//	{"type": "hmr:update", "data": {"path": "templates/index.html", "timestamp": 1700000000000}}
//
// The client then requests GET {hmrRoute}/{route} with the X-HMR-Request
// header and patches its page with the returned document.
package dev
