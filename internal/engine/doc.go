// Package engine assembles the browser session, login state machine,
// catalog navigator, capture collaborator and job orchestrator into one
// long-lived object.
//
// The catalog account tolerates a single driven browser, so an Engine holds
// an exclusive file lock in the state directory while running, and every
// sequence that touches the page (search, listing, login, a whole download
// job) runs on one worker goroutine, strictly one after another. Callers
// submit work and wait for it or for their own context.
package engine
