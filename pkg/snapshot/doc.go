// Package snapshot loads the persisted table state once per run and holds
// it as an in-memory index keyed by normalized identity.
//
// The index is the engine's only view of what the spreadsheet already
// contains: reconciliation never re-reads the remote table mid-run.
// Successful writes update the index in place, so a duplicate identity
// later in the same run diffs against the freshest state and lands on the
// same row.
package snapshot
