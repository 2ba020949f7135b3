package sqlcatalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/equipfind/equipfind/internal/catalog"
	"github.com/equipfind/equipfind/internal/pkg/logger"
)

// distinctQueries selects the non-empty values of each field.
var distinctQueries = map[catalog.Field]string{
	catalog.FieldType:        distinctColumn("equipment", "type"),
	catalog.FieldBrand:       distinctColumn("equipment", "brand"),
	catalog.FieldModel:       distinctColumn("equipment", "model"),
	catalog.FieldDescription: distinctColumn("equipment", "description"),
	catalog.FieldStatus:      distinctColumn("equipment", "status"),
	catalog.FieldFeature:     distinctColumn("features", "name"),
	catalog.FieldRoomName:    distinctColumn("rooms", "name"),
}

func distinctColumn(table, column string) string {
	return fmt.Sprintf(
		`SELECT DISTINCT %[2]s FROM %[1]s WHERE %[2]s IS NOT NULL AND TRIM(%[2]s) <> '' ORDER BY %[2]s LIMIT ?`,
		table, column)
}

const equipmentColumns = `
	e.id, e.model, e.brand, e.type, COALESCE(e.description, ''), e.status,
	COALESCE(e.mac, ''), COALESCE(e.ip, ''), e.room_id, r.name, r.floor, r.x, r.y`

const featureExists = `EXISTS (
	SELECT 1 FROM equipment_features ef JOIN features f ON f.id = ef.feature_id
	WHERE ef.equipment_id = e.id AND %s)`

// Catalog reads equipment from a SQL database.
type Catalog struct {
	db     DB
	driver string
	log    *logger.Logger
}

// New creates a Catalog over db. driver selects placeholder style and
// whether full-text ranking is available.
func New(db DB, driver string, log *logger.Logger) *Catalog {
	return &Catalog{db: db, driver: driver, log: log.WithComponent("sqlcatalog")}
}

func (c *Catalog) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, rebind(c.driver, q), args...)
}

// Distinct implements catalog.Catalog.
func (c *Catalog) Distinct(ctx context.Context, field catalog.Field, limit int) ([]string, error) {
	q, ok := distinctQueries[field]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrUnknownField, field)
	}
	rows, err := c.query(ctx, q, limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", field, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("distinct %s: %w", field, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}

// Floors implements catalog.Catalog.
func (c *Catalog) Floors(ctx context.Context, limit int) ([]int, error) {
	rows, err := c.query(ctx,
		`SELECT DISTINCT floor FROM rooms WHERE floor IS NOT NULL ORDER BY floor LIMIT ?`,
		limitOrAll(limit))
	if err != nil {
		return nil, fmt.Errorf("floors: %w", err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var f int
		if err := rows.Scan(&f); err != nil {
			return nil, fmt.Errorf("floors: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Rooms implements catalog.Catalog.
func (c *Catalog) Rooms(ctx context.Context) ([]catalog.Room, error) {
	rows, err := c.query(ctx, `
		SELECT id, name, floor, x, y FROM rooms
		ORDER BY CASE WHEN floor IS NULL THEN 0 ELSE 1 END, floor, name`)
	if err != nil {
		return nil, fmt.Errorf("rooms: %w", err)
	}
	defer rows.Close()

	var out []catalog.Room
	for rows.Next() {
		var (
			r     catalog.Room
			floor sql.NullInt64
			x, y  sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Name, &floor, &x, &y); err != nil {
			return nil, fmt.Errorf("rooms: %w", err)
		}
		r.Floor = nullInt(floor)
		r.X, r.Y = nullFloat(x), nullFloat(y)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Scan implements catalog.Catalog.
func (c *Catalog) Scan(ctx context.Context, q catalog.ScanQuery) ([]catalog.Equipment, error) {
	where, args := scanConditions(q)

	sqlText := `SELECT` + equipmentColumns + `
		FROM equipment e LEFT JOIN rooms r ON r.id = e.room_id`
	if len(where) > 0 {
		sqlText += "\n\t\tWHERE " + strings.Join(where, "\n\t\t  AND ")
	}
	sqlText += "\n\t\tORDER BY e.id LIMIT ?"
	args = append(args, limitOrAll(q.Limit))

	eq, err := c.scanEquipment(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	c.log.WithContext(ctx).Debug("Catalog scan", "conditions", len(where), "terms", len(q.Terms), "rows", len(eq))
	return eq, nil
}

func scanConditions(q catalog.ScanQuery) ([]string, []any) {
	var (
		where []string
		args  []any
	)
	if q.Floor != nil {
		where = append(where, "r.floor = ?")
		args = append(args, *q.Floor)
	}
	if q.RoomID != nil {
		where = append(where, "e.room_id = ?")
		args = append(args, *q.RoomID)
	} else if q.RoomText != "" {
		where = append(where, `LOWER(r.name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(q.RoomText))
	}
	for _, eq := range []struct{ col, val string }{
		{"e.status", q.Status}, {"e.type", q.Type}, {"e.brand", q.Brand},
	} {
		if eq.val != "" {
			where = append(where, "LOWER("+eq.col+") = LOWER(?)")
			args = append(args, eq.val)
		}
	}
	if q.Feature != "" {
		where = append(where, fmt.Sprintf(featureExists, "LOWER(f.name) = LOWER(?)"))
		args = append(args, q.Feature)
	}

	if len(q.Terms) > 0 {
		var anyOf []string
		for _, term := range q.Terms {
			pattern := likePattern(term)
			anyOf = append(anyOf, `(LOWER(e.model) LIKE ? ESCAPE '\'
			OR LOWER(e.type) LIKE ? ESCAPE '\'
			OR LOWER(e.brand) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(e.description, '')) LIKE ? ESCAPE '\'
			OR LOWER(COALESCE(r.name, '')) LIKE ? ESCAPE '\'
			OR `+fmt.Sprintf(featureExists, `LOWER(f.name) LIKE ? ESCAPE '\'`)+`)`)
			for i := 0; i < 6; i++ {
				args = append(args, pattern)
			}
		}
		where = append(where, "("+strings.Join(anyOf, " OR ")+")")
	}
	return where, args
}

// FindByNetwork implements catalog.Catalog.
func (c *Catalog) FindByNetwork(ctx context.Context, kind catalog.NetworkKind, value string) ([]catalog.Equipment, error) {
	var cond string
	switch kind {
	case catalog.NetworkIP:
		cond = "e.ip = ?"
	case catalog.NetworkMAC:
		cond = "LOWER(e.mac) = LOWER(?)"
	default:
		return nil, fmt.Errorf("unknown network kind %q", kind)
	}
	eq, err := c.scanEquipment(ctx, `SELECT`+equipmentColumns+`
		FROM equipment e LEFT JOIN rooms r ON r.id = e.room_id
		WHERE `+cond+` ORDER BY e.id`, value)
	if err != nil {
		return nil, fmt.Errorf("find by %s: %w", kind, err)
	}
	return eq, nil
}

func (c *Catalog) scanEquipment(ctx context.Context, q string, args ...any) ([]catalog.Equipment, error) {
	rows, err := c.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	var (
		out   []catalog.Equipment
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			e        catalog.Equipment
			roomID   sql.NullInt64
			roomName sql.NullString
			floor    sql.NullInt64
			x, y     sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Model, &e.Brand, &e.Type, &e.Description, &e.Status,
			&e.MAC, &e.IP, &roomID, &roomName, &floor, &x, &y); err != nil {
			rows.Close()
			return nil, err
		}
		if roomID.Valid {
			id := roomID.Int64
			e.Location.RoomID = &id
		}
		e.Location.RoomName = roomName.String
		e.Location.Floor = nullInt(floor)
		e.Location.X, e.Location.Y = nullFloat(x), nullFloat(y)
		e.Features = []string{}
		index[e.ID] = len(out)
		out = append(out, e)
	}
	// Release the connection before the feature query.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := c.loadFeatures(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Catalog) loadFeatures(ctx context.Context, eq []catalog.Equipment, index map[int64]int) error {
	ids := make([]int64, len(eq))
	for i, e := range eq {
		ids[i] = e.ID
	}
	rows, err := c.query(ctx, `
		SELECT ef.equipment_id, f.name
		FROM equipment_features ef JOIN features f ON f.id = ef.feature_id
		WHERE ef.equipment_id IN (`+placeholders(len(ids))+`)
		ORDER BY ef.equipment_id, f.name`, int64Args(ids)...)
	if err != nil {
		return fmt.Errorf("loading features: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("loading features: %w", err)
		}
		if i, ok := index[id]; ok {
			eq[i].Features = append(eq[i].Features, name)
		}
	}
	return rows.Err()
}

// TextRanks implements catalog.Catalog using ts_rank_cd on PostgreSQL.
// SQLite has no equivalent and returns an empty map.
func (c *Catalog) TextRanks(ctx context.Context, query string, ids []int64) (map[int64]float64, error) {
	out := make(map[int64]float64)
	if c.driver != DriverPostgres || strings.TrimSpace(query) == "" || len(ids) == 0 {
		return out, nil
	}

	args := append([]any{query}, int64Args(ids)...)
	rows, err := c.query(ctx, `
		SELECT e.id, ts_rank_cd(
			to_tsvector('simple', concat_ws(' ', e.model, e.type, e.brand, COALESCE(e.description, ''))),
			plainto_tsquery('simple', ?))
		FROM equipment e
		WHERE e.id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("text ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id   int64
			rank float64
		)
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, fmt.Errorf("text ranks: %w", err)
		}
		out[id] = rank
	}
	return out, rows.Err()
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
