// Package cli is the sanposhin command-line client. Every command opens the
// device-local SQLite store, pings the server once and then works online
// or offline. Log entries written offline are queued and delivered by
// "sync" or by a running "watch".
package cli
