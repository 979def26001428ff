package engine

import "profilesync/pkg/audit"

// RowWriter is the slice of the write executor the engine drives. Row
// numbers are one-based sheet positions.
type RowWriter interface {
	AppendRow(tab string, row []string) (int, error)
	OverwriteRow(tab string, rowNum int, row []string) error
	SetFormula(tab string, colIdx, rowNum int, formula string) error
}

// ChangeLogger receives one audit entry per reconciled record
type ChangeLogger interface {
	LogChange(identity string, kind audit.ChangeKind, changedFields []string, before, after map[string]string)
}
