// Package health tracks the connection state of the change feed.
//
// # Overview
//
// The change stream records the outcome of every long poll in a Tracker.
// Readers (the admin endpoint and the UI header) take copies with Snapshot
// and never block the stream for longer than a copy.
//
// # Update Semantics
//
//	// Success: advance the cursor, clear the error
//	tracker.Record(next, nil)
//	→ snapshot.Cursor = next
//	→ snapshot.LastSuccess = now
//	→ snapshot.ConsecutiveFailures = 0
//
//	// Failure: keep the cursor, count the error
//	tracker.Record(0, err)
//	→ snapshot.Cursor = <unchanged>
//	→ snapshot.LastError = err
//	→ snapshot.ConsecutiveFailures++
//
// LastPoll is updated either way. After two failed polls in a row the feed
// reports IsOffline; the point cache keeps serving the last known data.
//
// A nil *Tracker ignores Record and returns a zero Snapshot, so components
// built without one need no checks.
package health
