// Package api exposes the job processor over HTTP. Clients submit an
// inference request, receive a job id, and poll the result endpoint until
// the job is COMPLETED or FAILED.
package api
