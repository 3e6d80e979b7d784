package model

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyBooked means another device won the race for the point.
	// Retrying requires a fresh availability check.
	ErrAlreadyBooked = errors.New("feeding point already booked")

	// ErrNetwork marks transient failures; the same intent may be retried.
	ErrNetwork = errors.New("network failure")

	// ErrStaleSnapshot means a recovered reservation outlived its window.
	ErrStaleSnapshot = errors.New("reservation snapshot expired")

	// ErrNoReservation is returned by finish/cancel when nothing is in progress.
	ErrNoReservation = errors.New("no reservation in progress")

	// ErrReservationActive is returned by start while another reservation runs.
	ErrReservationActive = errors.New("reservation already in progress")
)

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNetwork) match any NetworkError.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// MutationRejectedError carries a server-side validation failure. Message is
// shown to the user verbatim.
type MutationRejectedError struct {
	Message string
}

func (e *MutationRejectedError) Error() string {
	return "mutation rejected: " + e.Message
}

// IsRetryable reports whether the user may reissue the same intent.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork)
}
