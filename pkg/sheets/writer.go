package sheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	errs "profilesync/pkg/errors"
	"profilesync/pkg/logger"
	"profilesync/pkg/ratelimit"
	"profilesync/pkg/retry"
)

// API is the slice of the remote store the writer needs
type API interface {
	GetValues(tabRange string) ([][]string, error)
	AppendRow(tab string, row []string) (int, error)
	UpdateRange(tab, a1Range string, values [][]string, userEntered bool) error
	ClearTab(tab string) error
}

// Writer applies single mutations against the remote store under the
// write budget: bounded retry with linear backoff on throttling signals
// only, immediate abort on anything else, and a fixed pacing delay after
// every successful operation.
type Writer struct {
	api     API
	retrier *retry.Retrier
	pacer   *ratelimit.Pacer
	logger  logger.Logger
}

// WriterConfig parameterizes the write executor
type WriterConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	WriteDelay  time.Duration
	Context     context.Context
}

// NewWriter creates a rate-limited write executor over the given API
func NewWriter(api API, cfg WriterConfig, log logger.Logger) *Writer {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	retrier := retry.NewRetrier(&retry.Config{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     &retry.LinearBackoff{BaseDelay: cfg.BackoffBase},
		RetryIf:     retry.DefaultRetryIf,
		Context:     ctx,
		Logger:      log,
	})

	return &Writer{
		api:     api,
		retrier: retrier,
		pacer:   ratelimit.NewPacer(cfg.WriteDelay),
		logger:  log,
	}
}

// apply runs one mutation under the retry policy and paces afterwards
func (w *Writer) apply(tab, operation string, op func() error) error {
	err := w.retrier.Do(op)
	logger.LogWrite(tab, operation, err == nil, err)
	if err != nil {
		return err
	}
	w.pacer.Pace()
	return nil
}

// AppendRow appends one row and returns the row number the store reports
func (w *Writer) AppendRow(tab string, row []string) (int, error) {
	var rowNum int
	err := w.apply(tab, "append", func() error {
		var opErr error
		rowNum, opErr = w.api.AppendRow(tab, row)
		return opErr
	})
	return rowNum, err
}

// OverwriteRow replaces a full row at a known location. The whole tuple is
// written, not a sparse patch: a partial write cannot leave the row torn
// across columns.
func (w *Writer) OverwriteRow(tab string, rowNum int, row []string) error {
	lastCol := columnLetterFor(len(row) - 1)
	a1 := fmt.Sprintf("A%d:%s%d", rowNum, lastCol, rowNum)
	return w.apply(tab, "overwrite", func() error {
		return w.api.UpdateRange(tab, a1, [][]string{row}, false)
	})
}

// SetFormula writes a formula into a single cell addressed by zero-based
// column index and one-based row number
func (w *Writer) SetFormula(tab string, colIdx, rowNum int, formula string) error {
	cell := fmt.Sprintf("%s%d", columnLetterFor(colIdx), rowNum)
	a1 := cell + ":" + cell
	return w.apply(tab, "formula", func() error {
		return w.api.UpdateRange(tab, a1, [][]string{{formula}}, true)
	})
}

// UpdateCell writes a plain value into a single cell
func (w *Writer) UpdateCell(tab, cell, value string) error {
	a1 := cell + ":" + cell
	return w.apply(tab, "update_cell", func() error {
		return w.api.UpdateRange(tab, a1, [][]string{{value}}, false)
	})
}

// AppendLog appends one row to an append-only tab (change log, dashboard)
func (w *Writer) AppendLog(tab string, row []string) error {
	err := w.apply(tab, "log_append", func() error {
		_, opErr := w.api.AppendRow(tab, row)
		return opErr
	})
	return err
}

// ClearTab clears a whole tab
func (w *Writer) ClearTab(tab string) error {
	return w.apply(tab, "clear", func() error {
		return w.api.ClearTab(tab)
	})
}

// IsRecordFailure reports whether a write error should be isolated to the
// current record rather than aborting the run
func IsRecordFailure(err error) bool {
	var apiErr *errs.Error
	if stderrors.As(err, &apiErr) {
		return !errs.IsFatal(apiErr.Type)
	}
	return true
}

// columnLetterFor converts a zero-based column index to its A1 letter
func columnLetterFor(colIdx int) string {
	result := ""
	colIdx++
	for colIdx > 0 {
		colIdx--
		result = string(rune('A'+colIdx%26)) + result
		colIdx /= 26
	}
	return result
}
