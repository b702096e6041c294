// Package browser drives one headless Chrome process per audited URL.
//
// A Launcher starts a fresh process on its own remote debugging port and
// opens a single tab. The returned Session records console errors from the
// moment it opens, navigates until the network is substantially idle, and
// exposes the debugging endpoint so an external audit engine can attach to
// the same browser. Sessions are never reused; Close tears down the process
// and its throw-away profile.
package browser
