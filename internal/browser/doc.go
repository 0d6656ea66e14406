// Package browser owns the single automation-controlled connection to the
// catalog.
//
// Session exposes navigation and element lookup with visibility polling on
// top of a Driver, the narrow capability the rest of the engine depends on.
// The production Driver is backed by Playwright; tests use the in-memory
// site in browsertest. All Session calls are serialized: the catalog's
// script-driven pages do not tolerate overlapping navigation.
package browser
