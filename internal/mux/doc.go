// Package mux drives the external terminal multiplexer and reconciles
// session state.
//
// Sessions are not owned by this tool: the multiplexer's own session
// listing is the only authority, queried fresh before every decision. The
// reconciler guarantees that after an open operation the caller is either
// attached to a live session or inside a freshly created one. An exited
// but still-registered session is always deleted and recreated, never
// attached.
//
// The default binary is zellij; anything with a compatible CLI surface
// (list-sessions, attach, kill-session, delete-session) can be configured
// in its place.
package mux
