// Package engine defines the boundary between the job worker and the
// inference backends that turn a prompt into an image. Backends are slow,
// synchronous and non-reentrant; the worker owns one Pipeline at a time and
// releases it before taking the next job.
package engine
