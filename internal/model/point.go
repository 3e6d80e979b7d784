package model

import (
	"slices"
	"time"
)

// Status is the booking status of a feeding point.
type Status string

const (
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusBeingFed  Status = "being-fed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusBeingFed:
		return true
	}
	return false
}

// CanTransition reports whether a point may move from s to next.
// Repeating the current status is always allowed.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusAvailable:
		return next == StatusReserved
	case StatusReserved:
		return next == StatusBeingFed || next == StatusAvailable
	case StatusBeingFed:
		return next == StatusAvailable
	}
	return false
}

// Category is the kind of animal a point serves.
type Category string

const (
	CategoryCats Category = "cats"
	CategoryDogs Category = "dogs"
)

// Location is a WGS84 coordinate.
type Location struct {
	Lat float64 `json:"lat" toml:"lat"`
	Lon float64 `json:"lon" toml:"lon"`
}

// Feeder summarizes the last person who fed a point.
type Feeder struct {
	UserID string    `json:"userId"`
	Name   string    `json:"name"`
	FedAt  time.Time `json:"fedAt"`
}

// FeedingPoint mirrors the point payload of the feeding API. IsFavorite is
// scoped to the current user; UpdatedAt is the server version stamp of the
// delivered record.
type FeedingPoint struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Location        Location  `json:"location"`
	Cover           string    `json:"cover"`
	Images          []string  `json:"images"`
	Category        Category  `json:"category"`
	Status          Status    `json:"status"`
	StatusUpdatedAt time.Time `json:"statusUpdatedAt"`
	LastFeeder      *Feeder   `json:"lastFeeder,omitempty"`
	IsFavorite      bool      `json:"isFavorite"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of p.
func (p FeedingPoint) Clone() FeedingPoint {
	dup := p
	dup.Images = slices.Clone(p.Images)
	if p.LastFeeder != nil {
		feeder := *p.LastFeeder
		dup.LastFeeder = &feeder
	}
	return dup
}

// ChangeEvent is one delivery from the remote change feed.
type ChangeEvent struct {
	Sequence uint64       `json:"seq"`
	Point    FeedingPoint `json:"point"`
	Deleted  bool         `json:"deleted"`
}

// HistoryEntry is one completed feeding of a point.
type HistoryEntry struct {
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Images    []string  `json:"images"`
	UpdatedAt time.Time `json:"updatedAt"`
}
