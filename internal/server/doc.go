// Package server provides the HTTP layer of livedoc.
//
// # Endpoints
//
//   - GET /: the viewer page, which embeds the document and reloads it on
//     every "update" message
//   - GET /pdf, GET /document: the document bytes, never cached
//   - GET /listen: Server-Sent Events stream of change notifications
//   - GET /status: JSON snapshot of hub and watcher counters
//   - POST /stop: asks the process to shut down
//
// # Event stream
//
// Each /listen client is one event.Subscriber. The stream starts with a
// "connected" message and carries one "update" message per change:
//
//	event: message
//	data: connected
//
//	event: message
//	data: update
//
// Heartbeat comments keep idle connections open through proxies. When the
// server runs without a watcher, the stream sends "connected" followed by an
// "unavailable" event and ends.
//
// # Usage Example
//
//	hub := event.NewHub()
//	w, err := watcher.Start(target, func(ev event.ChangeEvent) { hub.Publish(ev) }, watcher.Options{})
//	if err != nil {
//		return err
//	}
//	defer w.Stop()
//
//	cfg := server.DefaultConfig()
//	cfg.Document = target.Path
//	srv := server.New(cfg, hub, w)
//	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
//		return err
//	}
package server
