// Package ratelimit provides request pacing for the profile sync tool.
//
// Two mechanisms cover the two remote surfaces:
//
// Token Bucket:
//   - Fixed capacity bucket that refills after a specified period
//   - Applied to page fetches against the scraped site
//   - Suitable for burst traffic followed by quiet periods
//
// Pacer:
//   - Fixed delay inserted after every spreadsheet mutation
//   - Proactive pacing, distinct from the reactive backoff in the retry
//     policy
//
// All limiters implement the Limiter interface:
//   - Allow() bool - Check if a request is allowed
//   - Wait() - Block until a request is allowed
//   - Reset() - Reset the limiter state
//
// Usage:
//
//	// Token bucket: 60 requests per minute
//	limiter := ratelimit.NewTokenBucket(60, time.Minute)
//
//	if limiter.Allow() {
//	    // Proceed with request
//	} else {
//	    // Wait for rate limit to reset
//	    limiter.Wait()
//	}
package ratelimit
