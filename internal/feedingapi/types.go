package feedingapi

import "github.com/five82/feeder/internal/model"

// BookingID identifies a booking created by StartBooking.
type BookingID string

// PointListResponse mirrors GET /api/points.
type PointListResponse struct {
	Items []model.FeedingPoint `json:"items"`
}

// BookableResponse mirrors GET /api/points/{id}/bookable.
type BookableResponse struct {
	Bookable bool `json:"bookable"`
}

// HistoryResponse mirrors GET /api/points/{id}/history.
type HistoryResponse struct {
	Items []model.HistoryEntry `json:"items"`
}

// BookingResponse mirrors POST /api/points/{id}/bookings.
type BookingResponse struct {
	BookingID BookingID `json:"bookingId"`
}

// FinishRequest is the body of POST /api/points/{id}/bookings/finish.
type FinishRequest struct {
	Images []string `json:"images"`
}

// FavoriteRequest is the body of PUT /api/points/{id}/favorite.
type FavoriteRequest struct {
	Favorite bool `json:"favorite"`
}

// ChangeBatch aggregates change events with the next sequence cursor.
type ChangeBatch struct {
	Events []model.ChangeEvent `json:"events"`
	Next   uint64              `json:"next"`
}

// errorResponse is the JSON error envelope returned with 4xx/5xx statuses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
