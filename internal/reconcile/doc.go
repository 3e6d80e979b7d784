// Package reconcile keeps the ledger in step with the remote change feed.
//
// # Overview
//
// Two goroutines cooperate:
//
//	Stream.Run                     Reconciler.Run
//	┌───────────────────┐  events  ┌─────────────────────────┐
//	│ FetchChanges(…)   │────────→ │ ledger.Upsert / Remove  │
//	│ backoff on error  │  (chan)  │ classify                │
//	└───────────────────┘          │ publish                 │
//	                               └─────────────────────────┘
//
// Stream long-polls the feed and forwards events in delivery order. After a
// failed poll it waits base, 2×base, 4×base and so on, capped at 30s, and
// resets once a poll succeeds.
//
// # Signals
//
//	FavoriteOnly → FavoriteChanged(pointID)    row refresh only
//	Substantive  → PointsChanged(ledger.All()) full list refresh
//	None / stale → nothing
//
// Broadcasters never block, so a slow UI cannot stall the stream.
//
// # Bookability
//
// CanBook is the authoritative availability check. It runs against the
// remote with a short timeout, is not retried, and answers false on any
// error. The error is returned as well, wrapped so that it matches
// model.ErrNetwork. Points registered with Watch get a fresh CanBook result on
// BookabilityChanged after every substantive change.
package reconcile
