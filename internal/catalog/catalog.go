// Package catalog defines the read-only equipment model and the collaborator
// contracts the search engine consumes. Implementations live in subpackages.
package catalog

import (
	"context"
	"errors"
)

// Field names a column with distinct values.
type Field string

// Fields accepted by Catalog.Distinct.
const (
	FieldType        Field = "type"
	FieldBrand       Field = "brand"
	FieldModel       Field = "model"
	FieldDescription Field = "description"
	FieldStatus      Field = "status"
	FieldFeature     Field = "feature"
	FieldRoomName    Field = "room_name"
)

// Valid reports whether f is a known field.
func (f Field) Valid() bool {
	switch f {
	case FieldType, FieldBrand, FieldModel, FieldDescription, FieldStatus, FieldFeature, FieldRoomName:
		return true
	}
	return false
}

// NetworkKind selects the identifier used by FindByNetwork.
type NetworkKind string

const (
	NetworkIP  NetworkKind = "ip"
	NetworkMAC NetworkKind = "mac"
)

// ErrUnknownField is returned for a Field outside the known set.
var ErrUnknownField = errors.New("catalog: unknown field")

// Location places equipment in the building. Any part may be missing.
type Location struct {
	RoomID   *int64   `json:"room_id,omitempty"`
	RoomName string   `json:"room_name,omitempty"`
	Floor    *int     `json:"floor,omitempty"`
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
}

// HasCoordinates reports whether both coordinates are known.
func (l Location) HasCoordinates() bool {
	return l.X != nil && l.Y != nil
}

// Equipment is one physical device.
type Equipment struct {
	ID          int64    `json:"id"`
	Model       string   `json:"model"`
	Brand       string   `json:"brand"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Status      string   `json:"status"`
	MAC         string   `json:"mac,omitempty"`
	IP          string   `json:"ip,omitempty"`
	Location    Location `json:"location"`
	Features    []string `json:"features"`
}

// Room is a room with its floor and planar coordinates.
type Room struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Floor *int     `json:"floor,omitempty"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
}

// ReservationStats are per-equipment reservation aggregates.
type ReservationStats struct {
	Waiting int `json:"waiting"`
	// Active counts every reservation that was not cancelled or completed.
	Active int `json:"active"`
}

// ScanQuery bounds a candidate scan. Non-empty structured fields are
// case-insensitive equality conditions; RoomText is a substring condition
// applied only when RoomID is nil. When Terms is non-empty at least one term
// must be a case-insensitive substring of the model, type, brand,
// description, room name or a feature name.
type ScanQuery struct {
	Floor    *int
	RoomID   *int64
	RoomText string
	Status   string
	Type     string
	Brand    string
	Feature  string
	Terms    []string
	Limit    int
}

// Catalog is read access to equipment, rooms, floors and features.
type Catalog interface {
	// Distinct returns up to limit non-empty distinct values of field in
	// ascending order.
	Distinct(ctx context.Context, field Field, limit int) ([]string, error)
	// Floors returns up to limit distinct floor numbers in ascending order.
	Floors(ctx context.Context, limit int) ([]int, error)
	// Rooms lists every room ordered by floor then name.
	Rooms(ctx context.Context) ([]Room, error)
	// Scan returns matching equipment ordered by id, loaded with location
	// and features.
	Scan(ctx context.Context, q ScanQuery) ([]Equipment, error)
	// FindByNetwork returns equipment whose IP or MAC equals value.
	FindByNetwork(ctx context.Context, kind NetworkKind, value string) ([]Equipment, error)
	// TextRanks returns a native full-text relevance per id. Backends
	// without full-text support return an empty map and no error.
	TextRanks(ctx context.Context, query string, ids []int64) (map[int64]float64, error)
}

// StatsProvider supplies reservation aggregates.
type StatsProvider interface {
	Stats(ctx context.Context, ids []int64) (map[int64]ReservationStats, error)
}

// Facets are the distinct values filter extraction matches against.
type Facets struct {
	Types    []string
	Brands   []string
	Features []string
	Statuses []string
}

// Changed is the payload of a catalog change notification.
type Changed struct {
	Reason string  `json:"reason,omitempty"`
	IDs    []int64 `json:"ids,omitempty"`
}
