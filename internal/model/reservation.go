package model

import "time"

// ReservationWindow is how long a booking stays valid before it is
// cancelled automatically.
const ReservationWindow = time.Hour

// ReservationSnapshot is the device-local record of the active reservation.
// It outlives process restarts so the reservation can be recovered.
type ReservationSnapshot struct {
	PointID          string    `toml:"point_id"`
	Location         Location  `toml:"location"`
	FeedStartingDate time.Time `toml:"feed_starting_date"`
	BookingID        string    `toml:"booking_id"`
}

// Remaining returns how much of window is left at now.
func (s ReservationSnapshot) Remaining(window time.Duration, now time.Time) time.Duration {
	return RemainingTime(s.FeedStartingDate, window, now)
}

// RemainingTime is max(0, window - (now - startedAt)).
func RemainingTime(startedAt time.Time, window time.Duration, now time.Time) time.Duration {
	left := window - now.Sub(startedAt)
	if left < 0 {
		return 0
	}
	return left
}
