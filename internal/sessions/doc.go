// Package sessions keeps uploaded order tables in memory, one per session.
//
// Each session owns its table; a new upload to the same session replaces it.
// Sessions that stay idle longer than the configured TTL are removed by
// Sweep. Nothing is persisted.
package sessions
