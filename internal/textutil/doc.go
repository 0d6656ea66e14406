// Package textutil provides the small text helpers shared by the catalog,
// resume and capture layers.
//
// The primary use cases are:
//   - Sanitizing series and season names into filesystem path components
//   - Ordering episode file names the way a person would (S2 before S10)
//   - Truncating paths and error messages for one-line display
//   - Ranking search result titles against the query by token similarity
//
// Fingerprints are term frequency vectors over Unicode letter and digit runs,
// so titles in any script compare sensibly.
package textutil
