// Package catalog resolves free-text titles to series pages and enumerates
// their seasons and episodes.
//
// Every read is a scrape of the live page. Seasons whose episode list is
// empty are dropped and the survivors re-indexed from zero; that filtered
// index is the only season index the rest of episodic uses. Search outcomes
// are values, not errors: a missing series is routine. Errors are reserved for
// a broken session or a canceled context.
package catalog
