// Package model defines the feeding point domain shared by every engine
// component: points and their statuses, change events, feeding history, the
// field-by-field diff used to classify remote deltas, and the error taxonomy.
//
// # Status Transitions
//
// A point only moves along these edges:
//
//	available ──> reserved ──> being-fed ──> available
//	                  │
//	                  └──> available (cancelled or expired)
//
// Status.CanTransition encodes the table. The remote store owns the points;
// the engine only caches them.
//
// # Diff
//
// Diff compares two versions of a point field by field and returns a tagged
// Delta. A delta touching only IsFavorite is ChangeFavoriteOnly, any other
// field makes it ChangeSubstantive. UpdatedAt is the version stamp used for
// ordering and is ignored by the comparison.
//
// # Errors
//
//   - ErrAlreadyBooked: lost availability race, surfaced to the user
//   - ErrNetwork / NetworkError: transient, retryable
//   - ErrStaleSnapshot: recovered reservation already expired, never surfaced
//   - MutationRejectedError: server validation failure, shown verbatim
package model
