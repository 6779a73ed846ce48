// Package job implements the asynchronous inference job processor: an
// unbounded FIFO submission queue, a synchronized status store and a single
// worker goroutine that runs jobs serially against a non-reentrant inference
// engine. Callers submit work, receive an opaque identifier and poll for the
// job's status until it reaches COMPLETED or FAILED.
package job
