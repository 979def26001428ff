// Package sheets talks to the spreadsheet-shaped remote store.
//
// Two layers split the concern:
//   - Client issues the raw HTTP calls (read a tab, write a range, clear a
//     tab) against the sheets API
//   - Writer wraps the client with the write policy: bounded retry on
//     throttling, a fixed pacing delay after every mutation, and full-row
//     semantics for appends and overwrites
//
// Every mutation goes through the Writer; nothing else in the repo writes
// to the store directly. Rows are always written whole, so a partially
// failed update can never leave a row mixing old and new values.
package sheets
