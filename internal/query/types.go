// Package query turns a free-text equipment query into structured filters:
// floor, room fragment, status, canonical equipment type, brand and feature.
package query

// Canonical equipment types. Catalog types are free-form and cluster around
// these names.
const (
	TypePrinter   = "Imprimante"
	TypeScanner   = "Scanner"
	TypeProjector = "Projecteur"
	TypeScreen    = "Écran"
	TypeRouter    = "Routeur"
)

// Canonical statuses used when the catalog has no status of the same class.
const (
	StatusAvailable = "Available"
	StatusOccupied  = "Occupied"
	StatusFaulty    = "Faulty"
)

// Filters are the structured conditions found in, or supplied alongside, a
// query. Zero values mean "no condition".
type Filters struct {
	Floor    *int   `json:"floor,omitempty"`
	RoomText string `json:"room_text,omitempty"`
	Status   string `json:"status,omitempty"`
	Type     string `json:"type,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Feature  string `json:"feature,omitempty"`
}

// Merge returns f with every empty field filled from inferred. Values already
// set on f are never overridden.
func (f Filters) Merge(inferred Filters) Filters {
	out := f
	if out.Floor == nil && inferred.Floor != nil {
		v := *inferred.Floor
		out.Floor = &v
	}
	if out.RoomText == "" {
		out.RoomText = inferred.RoomText
	}
	if out.Status == "" {
		out.Status = inferred.Status
	}
	if out.Type == "" {
		out.Type = inferred.Type
	}
	if out.Brand == "" {
		out.Brand = inferred.Brand
	}
	if out.Feature == "" {
		out.Feature = inferred.Feature
	}
	return out
}

// Extraction is the result of Extractor.Extract.
type Extraction struct {
	Filters Filters
	// Cleaned holds the normalized, noise-free query tokens.
	Cleaned []string
}
