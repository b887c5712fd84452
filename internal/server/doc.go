// Package server provides the HTTP API of the queue service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified [http.ServeMux] patterns, so path
// wildcards are read with [http.Request.PathValue] and unknown methods get a 405 from the mux.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface and return their [Route] list, which keeps the
// route definitions next to the implementation.
//
// # Endpoints
//
// [NewAPI] wires the [QueueHandler] over a player registry:
//
//	GET    /sessions                          live session IDs
//	GET    /sessions/{id}/queue               entries with positions and ETA
//	POST   /sessions/{id}/queue               enqueue one URL (append or prepend)
//	GET    /sessions/{id}/queue/search?q=     keyword search
//	POST   /sessions/{id}/queue/import        expand and ingest a playlist
//	POST   /sessions/{id}/queue/move          move one entry
//	DELETE /sessions/{id}/queue/{index}       remove one entry
//	POST   /sessions/{id}/queue/shuffle       shuffle, keeping the playing entry
//	POST   /sessions/{id}/queue/clear         clear, keeping the playing entry
//	POST   /sessions/{id}/queue/fairness      toggle contributor fairness
//	PUT    /sessions/{id}/flags               loop and auto-continue modes
//	POST   /sessions/{id}/next                advance the queue
//	GET    /sessions/{id}/stream              chunked audio of position 0
//	GET    /health
//	GET    /metrics                           Prometheus exposition
//
// Errors are JSON objects with an "error" field; the status code follows the wrapped sentinel from
// the shared package.
package server
