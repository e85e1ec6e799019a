// Package checkpoint persists periodic soup snapshots to a local SQLite
// database so a long-running soup can resume instead of starting cold.
// Snapshots are CBOR-encoded and versioned by a schema_version row, so a
// future wire-format change fails loudly on open instead of silently
// misreading old rows.
package checkpoint
