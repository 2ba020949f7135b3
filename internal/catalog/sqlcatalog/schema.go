package sqlcatalog

import (
	"context"
	"fmt"
)

// schema is the portable subset of the building catalog the engine reads.
// The owning services keep the authoritative schema; EnsureSchema exists for
// local development and tests.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		floor INTEGER,
		x DOUBLE PRECISION,
		y DOUBLE PRECISION
	)`,
	`CREATE TABLE IF NOT EXISTS features (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		id INTEGER PRIMARY KEY,
		model TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL DEFAULT '',
		description TEXT,
		status TEXT NOT NULL DEFAULT '',
		mac TEXT,
		ip TEXT,
		room_id INTEGER REFERENCES rooms(id)
	)`,
	`CREATE TABLE IF NOT EXISTS equipment_features (
		equipment_id INTEGER NOT NULL REFERENCES equipment(id),
		feature_id INTEGER NOT NULL REFERENCES features(id),
		PRIMARY KEY (equipment_id, feature_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id INTEGER PRIMARY KEY,
		equipment_id INTEGER NOT NULL REFERENCES equipment(id),
		status TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_equipment_room ON equipment(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_equipment ON reservations(equipment_id)`,
}

// EnsureSchema creates the catalog tables when they are missing.
func EnsureSchema(ctx context.Context, db DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensuring catalog schema: %w", err)
		}
	}
	return nil
}
