package sqlcatalog

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/equipfind/equipfind/internal/catalog"
)

// ImportResult counts the rows written by Import.
type ImportResult struct {
	Rooms        int `json:"rooms"`
	Equipment    int `json:"equipment"`
	Features     int `json:"features"`
	Reservations int `json:"reservations"`
}

// Import replaces the catalog tables with the given data set in a single
// transaction. Reservation stats are materialized as reservation rows:
// Waiting rows in WAITING and the remaining active ones in ACTIVE.
func Import(ctx context.Context, db *sql.DB, driver string, equipment []catalog.Equipment, rooms []catalog.Room, stats map[int64]catalog.ReservationStats) (ImportResult, error) {
	var res ImportResult

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("import: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	exec := func(q string, args ...any) error {
		_, err := tx.ExecContext(ctx, rebind(driver, q), args...)
		return err
	}

	for _, table := range []string{"reservations", "equipment_features", "equipment", "features", "rooms"} {
		if err := exec("DELETE FROM " + table); err != nil {
			return res, fmt.Errorf("import: clearing %s: %w", table, err)
		}
	}

	for _, r := range rooms {
		if err := exec(`INSERT INTO rooms (id, name, floor, x, y) VALUES (?, ?, ?, ?, ?)`,
			r.ID, r.Name, r.Floor, r.X, r.Y); err != nil {
			return res, fmt.Errorf("import: room %d: %w", r.ID, err)
		}
		res.Rooms++
	}

	featureIDs := make(map[string]int64)
	var names []string
	for _, e := range equipment {
		for _, f := range e.Features {
			if _, ok := featureIDs[f]; !ok {
				featureIDs[f] = 0
				names = append(names, f)
			}
		}
	}
	sort.Strings(names)
	for i, name := range names {
		id := int64(i + 1)
		featureIDs[name] = id
		if err := exec(`INSERT INTO features (id, name) VALUES (?, ?)`, id, name); err != nil {
			return res, fmt.Errorf("import: feature %q: %w", name, err)
		}
		res.Features++
	}

	var reservationID int64
	for _, e := range equipment {
		if err := exec(`INSERT INTO equipment (id, model, brand, type, description, status, mac, ip, room_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Model, e.Brand, e.Type, nullString(e.Description), e.Status,
			nullString(e.MAC), nullString(e.IP), e.Location.RoomID); err != nil {
			return res, fmt.Errorf("import: equipment %d: %w", e.ID, err)
		}
		res.Equipment++

		seen := make(map[int64]bool, len(e.Features))
		for _, f := range e.Features {
			fid := featureIDs[f]
			if seen[fid] {
				continue
			}
			seen[fid] = true
			if err := exec(`INSERT INTO equipment_features (equipment_id, feature_id) VALUES (?, ?)`, e.ID, fid); err != nil {
				return res, fmt.Errorf("import: equipment %d feature %q: %w", e.ID, f, err)
			}
		}

		st := stats[e.ID]
		rows := make([]string, 0, max(st.Active, st.Waiting))
		for i := 0; i < st.Waiting; i++ {
			rows = append(rows, "WAITING")
		}
		for i := st.Waiting; i < st.Active; i++ {
			rows = append(rows, "ACTIVE")
		}
		for _, status := range rows {
			reservationID++
			if err := exec(`INSERT INTO reservations (id, equipment_id, status) VALUES (?, ?, ?)`,
				reservationID, e.ID, status); err != nil {
				return res, fmt.Errorf("import: reservation for equipment %d: %w", e.ID, err)
			}
			res.Reservations++
		}
	}

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("import: commit: %w", err)
	}
	return res, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
