// Package task manages background job queuing, processing, and lifecycle.
// It assigns every submitted unit of work an identifier, runs it on a pool of
// worker goroutines, and tracks it through the queued, started, finished and
// failed states so callers can poll for the outcome without blocking HTTP
// request handling.
package task
