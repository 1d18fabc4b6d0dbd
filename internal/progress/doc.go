// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces that scrape workers use to report job milestones. It
// batches events on a background goroutine and fans them out to pluggable
// sinks such as Prometheus collectors or structured logs.
package progress
