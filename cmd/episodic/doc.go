// Package main hosts the episodic CLI entrypoint and command graph.
//
// Commands that touch the catalog (search, download, login) start an
// engine for the duration of the command: it takes the single-instance
// lock, opens the browser, logs in when credentials are configured and
// releases everything on exit. Library and history commands only read the
// download tree and the history database, so they run alongside a download.
//
// Keep this package lean: behaviour lives in the internal packages and is
// surfaced here through flags and rendering.
package main
