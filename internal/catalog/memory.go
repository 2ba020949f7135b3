package catalog

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Memory is an in-process Catalog and StatsProvider over a fixed data set.
// It serves fixtures for the CLI and tests.
type Memory struct {
	mu        sync.RWMutex
	equipment []Equipment
	rooms     []Room
	stats     map[int64]ReservationStats
}

// NewMemory builds a Memory catalog. Equipment is kept ordered by id.
func NewMemory(equipment []Equipment, rooms []Room, stats map[int64]ReservationStats) *Memory {
	m := &Memory{}
	m.Replace(equipment, rooms, stats)
	return m
}

// Replace swaps the whole data set.
func (m *Memory) Replace(equipment []Equipment, rooms []Room, stats map[int64]ReservationStats) {
	eq := append([]Equipment(nil), equipment...)
	sort.Slice(eq, func(i, j int) bool { return eq[i].ID < eq[j].ID })
	rs := append([]Room(nil), rooms...)
	sort.SliceStable(rs, func(i, j int) bool {
		fi, fj := floorOrMin(rs[i].Floor), floorOrMin(rs[j].Floor)
		if fi != fj {
			return fi < fj
		}
		return rs[i].Name < rs[j].Name
	})
	st := make(map[int64]ReservationStats, len(stats))
	for k, v := range stats {
		st[k] = v
	}

	m.mu.Lock()
	m.equipment, m.rooms, m.stats = eq, rs, st
	m.mu.Unlock()
}

// Snapshot returns copies of the current data set.
func (m *Memory) Snapshot() ([]Equipment, []Room, map[int64]ReservationStats) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eq := make([]Equipment, len(m.equipment))
	for i, e := range m.equipment {
		eq[i] = cloneEquipment(e)
	}
	st := make(map[int64]ReservationStats, len(m.stats))
	for k, v := range m.stats {
		st[k] = v
	}
	return eq, append([]Room(nil), m.rooms...), st
}

func floorOrMin(f *int) int {
	if f == nil {
		return -1 << 31
	}
	return *f
}

// Distinct implements Catalog.
func (m *Memory) Distinct(ctx context.Context, field Field, limit int) ([]string, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[string]struct{})
	add := func(v string) {
		if strings.TrimSpace(v) != "" {
			set[v] = struct{}{}
		}
	}
	switch field {
	case FieldRoomName:
		for _, r := range m.rooms {
			add(r.Name)
		}
	case FieldFeature:
		for _, e := range m.equipment {
			for _, f := range e.Features {
				add(f)
			}
		}
	default:
		for _, e := range m.equipment {
			add(fieldValue(e, field))
		}
	}

	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func fieldValue(e Equipment, f Field) string {
	switch f {
	case FieldType:
		return e.Type
	case FieldBrand:
		return e.Brand
	case FieldModel:
		return e.Model
	case FieldDescription:
		return e.Description
	case FieldStatus:
		return e.Status
	}
	return ""
}

// Floors implements Catalog.
func (m *Memory) Floors(ctx context.Context, limit int) ([]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	set := make(map[int]struct{})
	for _, r := range m.rooms {
		if r.Floor != nil {
			set[*r.Floor] = struct{}{}
		}
	}
	for _, e := range m.equipment {
		if e.Location.Floor != nil {
			set[*e.Location.Floor] = struct{}{}
		}
	}
	out := make([]int, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Ints(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Rooms implements Catalog.
func (m *Memory) Rooms(ctx context.Context) ([]Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Room(nil), m.rooms...), nil
}

// Scan implements Catalog.
func (m *Memory) Scan(ctx context.Context, q ScanQuery) ([]Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Equipment
	for _, e := range m.equipment {
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		if matches(e, q) {
			out = append(out, cloneEquipment(e))
		}
	}
	return out, nil
}

func matches(e Equipment, q ScanQuery) bool {
	loc := e.Location
	if q.Floor != nil && (loc.Floor == nil || *loc.Floor != *q.Floor) {
		return false
	}
	if q.RoomID != nil && (loc.RoomID == nil || *loc.RoomID != *q.RoomID) {
		return false
	}
	if q.RoomID == nil && q.RoomText != "" && !containsFold(loc.RoomName, q.RoomText) {
		return false
	}
	for _, cond := range [][2]string{{q.Status, e.Status}, {q.Type, e.Type}, {q.Brand, e.Brand}} {
		if cond[0] != "" && !strings.EqualFold(cond[0], cond[1]) {
			return false
		}
	}
	if q.Feature != "" && !hasFeature(e, q.Feature) {
		return false
	}
	if len(q.Terms) == 0 {
		return true
	}
	fields := append([]string{e.Model, e.Type, e.Brand, e.Description, loc.RoomName}, e.Features...)
	for _, term := range q.Terms {
		for _, f := range fields {
			if containsFold(f, term) {
				return true
			}
		}
	}
	return false
}

func hasFeature(e Equipment, name string) bool {
	for _, f := range e.Features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func cloneEquipment(e Equipment) Equipment {
	e.Features = append([]string(nil), e.Features...)
	return e
}

// FindByNetwork implements Catalog.
func (m *Memory) FindByNetwork(ctx context.Context, kind NetworkKind, value string) ([]Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Equipment
	for _, e := range m.equipment {
		switch kind {
		case NetworkIP:
			if e.IP == value {
				out = append(out, cloneEquipment(e))
			}
		case NetworkMAC:
			if strings.EqualFold(e.MAC, value) {
				out = append(out, cloneEquipment(e))
			}
		default:
			return nil, fmt.Errorf("catalog: unknown network kind %q", kind)
		}
	}
	return out, nil
}

// TextRanks implements Catalog. Memory has no full-text index.
func (m *Memory) TextRanks(ctx context.Context, query string, ids []int64) (map[int64]float64, error) {
	return map[int64]float64{}, nil
}

// Stats implements StatsProvider.
func (m *Memory) Stats(ctx context.Context, ids []int64) (map[int64]ReservationStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[int64]ReservationStats, len(ids))
	for _, id := range ids {
		if s, ok := m.stats[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

// Fixture is the YAML shape accepted by LoadFixture.
type Fixture struct {
	Rooms     []Room                     `yaml:"rooms"`
	Equipment []fixtureEquipment         `yaml:"equipment"`
	Stats     map[int64]ReservationStats `yaml:"stats"`
}

type fixtureEquipment struct {
	ID          int64    `yaml:"id"`
	Model       string   `yaml:"model"`
	Brand       string   `yaml:"brand"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Status      string   `yaml:"status"`
	MAC         string   `yaml:"mac"`
	IP          string   `yaml:"ip"`
	RoomID      *int64   `yaml:"room_id"`
	Features    []string `yaml:"features"`
}

// LoadFixture reads a YAML fixture into a Memory catalog. Equipment inherits
// name, floor and coordinates from the room its room_id points at.
func LoadFixture(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}

	rooms := make(map[int64]Room, len(fx.Rooms))
	for _, r := range fx.Rooms {
		rooms[r.ID] = r
	}

	equipment := make([]Equipment, 0, len(fx.Equipment))
	for _, fe := range fx.Equipment {
		e := Equipment{
			ID: fe.ID, Model: fe.Model, Brand: fe.Brand, Type: fe.Type,
			Description: fe.Description, Status: fe.Status, MAC: fe.MAC, IP: fe.IP,
			Features: fe.Features,
			Location: Location{RoomID: fe.RoomID},
		}
		if fe.RoomID != nil {
			r, ok := rooms[*fe.RoomID]
			if !ok {
				return nil, fmt.Errorf("equipment %d references unknown room %d", fe.ID, *fe.RoomID)
			}
			e.Location.RoomName = r.Name
			e.Location.Floor = r.Floor
			e.Location.X, e.Location.Y = r.X, r.Y
		}
		equipment = append(equipment, e)
	}

	return NewMemory(equipment, fx.Rooms, fx.Stats), nil
}
