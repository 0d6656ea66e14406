// Package capture stores one catalog episode on disk.
//
// A Capturer opens the episode on the shared browser session, waits for the
// video player to receive a source, and streams that source over HTTP with
// the session's cookies. Files land at
// <root>/<series>/<season>/S<season>E<episode><ext> and are written through a
// ".part" sibling that is renamed once complete, so an interrupted capture
// never looks finished to the resume scanner.
package capture
