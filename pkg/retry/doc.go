// Package retry provides bounded retry with backoff for transient failures
// in remote operations, particularly spreadsheet writes.
//
// Features:
//   - Multiple backoff strategies (linear, exponential, constant)
//   - Context support for cancellation
//   - Configurable retry predicates
//   - Integration with the shared error classification
//
// Basic usage:
//
//	// Simple retry with defaults
//	err := retry.Do(func() error {
//		return writer.AppendRow(tab, row)
//	}, nil)
//
//	// Custom configuration
//	cfg := &retry.Config{
//		MaxAttempts: 3,
//		Backoff: &retry.LinearBackoff{
//			BaseDelay: 5 * time.Second,
//		},
//		RetryIf: retry.DefaultRetryIf,
//		Logger:  logger.GetLogger(),
//	}
//	err := retry.Do(operation, cfg)
//
// Error classification:
//
// The default predicate retries only errors classified as throttling. Auth
// failures, missing resources, and malformed requests fail immediately;
// repeating them cannot succeed and only burns the write budget.
package retry
