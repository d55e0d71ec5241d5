// Package client holds the CLI's connections to the outside world: the
// JSON/HTTP adapter for the sanposhin API, the gRPC health check used for
// connectivity, presigned image uploads, and the local SQLite bootstrap.
//
// Every remote failure is reported through the common sentinels, so callers
// match with errors.Is or classify with common.KindOf. Transport failures
// are always common.ErrUnavailable; that is the signal the log service and
// sync engine use to fall back to the local queue.
package client
