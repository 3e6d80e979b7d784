// Package reservation runs the feeding reservation state machine for this
// device.
//
// # Overview
//
// A Coordinator is an actor: Run owns the state and processes one request
// at a time, whether it comes from the user (Start, Finish, Cancel,
// Recover) or from the reservation Clock firing. The exported intent
// methods block until the actor has handled them.
//
//	                 Start ok                 Finish / Cancel / expiry
//	  Idle ──→ Reserved(id) ──→ InProgress(id) ──────────────────────→ Idle
//	   ↑            │
//	   └────────────┘ StartBooking failed
//
//	  Idle ──Recover(snapshot, remaining > 0)──→ InProgress(id)
//
// Reserved is only visible while the StartBooking call is in flight.
//
// # Guards
//
// Start asks Availability.CanBook first and never books a point it
// reports as taken. A 409 from the server means another device won the
// race; both cases raise NoticeAlreadyBooked and return
// model.ErrAlreadyBooked. A failed check refuses the booking with a
// retryable model.ErrNetwork and no notice. Network failures leave the
// state where it was so the user can retry the same intent.
//
// The availability check and remote mutations run on a context detached from the caller with their
// own timeout, so a cancelled UI request cannot leave the actor unsure of
// the server outcome.
//
// # Timer
//
// Clock arms one expiry per reservation and publishes the remaining time
// every second. Each Arm bumps a generation; a callback from an older
// generation is a no-op. On expiry the coordinator cancels the booking,
// clears the snapshot and raises NoticeTimerExpired.
//
// # Persistence
//
// The snapshot (point, location, start time, booking ID) is written after
// a successful StartBooking and removed when the reservation ends. If the
// write fails the feeding still starts and NoticeNotPersisted tells the
// user it will not survive a restart.
// FileStore keeps it as reservation.toml in the state directory. On
// Recover an expired snapshot is dropped without a remote cancel; the
// server has already reset that point.
package reservation
