package model

import (
	"slices"
	"strings"
)

// Classification tags how a point changed relative to its cached copy.
type Classification int

const (
	// ChangeNone means nothing observable changed.
	ChangeNone Classification = iota
	// ChangeFavoriteOnly means only the current user's favorite flag moved.
	ChangeFavoriteOnly
	// ChangeSubstantive means shared point content changed.
	ChangeSubstantive
)

func (c Classification) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangeFavoriteOnly:
		return "favorite_only"
	case ChangeSubstantive:
		return "substantive"
	}
	return "unknown"
}

// Field names reported by Diff.
const (
	FieldID              = "id"
	FieldName            = "name"
	FieldDescription     = "description"
	FieldLocation        = "location"
	FieldCover           = "cover"
	FieldImages          = "images"
	FieldCategory        = "category"
	FieldStatus          = "status"
	FieldStatusUpdatedAt = "statusUpdatedAt"
	FieldLastFeeder      = "lastFeeder"
	FieldFavorite        = "isFavorite"
)

// Delta is the result of comparing two versions of a point.
type Delta struct {
	Kind   Classification
	Fields []string
}

// Has reports whether field is among the changed fields.
func (d Delta) Has(field string) bool {
	return slices.Contains(d.Fields, field)
}

func (d Delta) String() string {
	if len(d.Fields) == 0 {
		return d.Kind.String()
	}
	return d.Kind.String() + "(" + strings.Join(d.Fields, ",") + ")"
}

// Diff compares prev and next field by field. UpdatedAt is the record
// version stamp and never counts as content.
func Diff(prev, next FeedingPoint) Delta {
	var fields []string
	add := func(changed bool, name string) {
		if changed {
			fields = append(fields, name)
		}
	}

	add(prev.ID != next.ID, FieldID)
	add(prev.Name != next.Name, FieldName)
	add(prev.Description != next.Description, FieldDescription)
	add(prev.Location != next.Location, FieldLocation)
	add(prev.Cover != next.Cover, FieldCover)
	add(!slices.Equal(prev.Images, next.Images), FieldImages)
	add(prev.Category != next.Category, FieldCategory)
	add(prev.Status != next.Status, FieldStatus)
	add(!prev.StatusUpdatedAt.Equal(next.StatusUpdatedAt), FieldStatusUpdatedAt)
	add(!sameFeeder(prev.LastFeeder, next.LastFeeder), FieldLastFeeder)
	substantive := len(fields) > 0
	add(prev.IsFavorite != next.IsFavorite, FieldFavorite)

	switch {
	case substantive:
		return Delta{Kind: ChangeSubstantive, Fields: fields}
	case len(fields) > 0:
		return Delta{Kind: ChangeFavoriteOnly, Fields: fields}
	default:
		return Delta{Kind: ChangeNone}
	}
}

func sameFeeder(a, b *Feeder) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UserID == b.UserID && a.Name == b.Name && a.FedAt.Equal(b.FedAt)
}
