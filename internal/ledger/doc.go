// Package ledger provides the device-local cache of feeding points.
//
// # Overview
//
// The Ledger is the single source of truth for every presentation mapper.
// It sits between the change stream reconciler, which writes to it, and the
// coordinator, details service and UI, which only read from it. It never
// performs I/O.
//
//	Writer (Reconciler):            Readers (Coordinator, UI):
//	┌──────────────────┐           ┌──────────────────┐
//	│ stream event     │           │                  │
//	│      ↓           │           │                  │
//	│ ledger.Upsert()  │──────────→│ ledger.Get/All() │
//	│      ↓           │  (mutex)  │      ↓           │
//	│ classify delta   │           │  render          │
//	└──────────────────┘           └──────────────────┘
//
// # Update Semantics
//
// Upsert is latest-value-wins on the server version stamp:
//
//	cached.UpdatedAt >= event.UpdatedAt  → dropped, Change{Stale: true}
//	no cached copy                       → stored, ChangeSubstantive, Created
//	otherwise                            → stored, model.Diff(cached, event)
//
// Redelivered and reordered events are therefore harmless: replaying any
// permutation of a set of events leaves the copy with the newest stamp.
//
// Remove keeps a deletion mark holding the delete's version stamp. An
// upsert for that ID is dropped as stale unless it is newer than the mark,
// and a delete older than the cached copy removes nothing.
//
// SetFavorite is the one local write. It flips IsFavorite for the optimistic
// favorite toggle and deliberately leaves UpdatedAt alone so the server's
// echo of the same mutation is still accepted.
//
// # Defensive Copying
//
// Points are cloned on the way in and on the way out (Images slice and
// LastFeeder pointer included), so readers never observe a half-updated
// record and cannot mutate cached state.
package ledger
