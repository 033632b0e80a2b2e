// Package cli provides the interactive Recipe Lab command-line client.
//
// It wires configuration, the local store, the optional remote store and the
// device-side services into a REPL. The local store is authoritative: every
// recipe command works offline, and remote writes are reported as committed,
// unconfirmed or skipped.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
