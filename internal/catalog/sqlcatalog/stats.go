package sqlcatalog

import (
	"context"
	"fmt"

	"github.com/equipfind/equipfind/internal/catalog"
)

// Reservation status vocabularies, compared upper-cased.
var (
	waitingStatuses  = []string{"WAITING", "EN ATTENTE"}
	finishedStatuses = []string{"CANCELLED", "ANNULEE", "ANNULÉE", "ANNULéE", "DONE", "TERMINE", "TERMINÉ", "TERMINé"}
)

// StatsStore aggregates the reservations table.
type StatsStore struct {
	db     DB
	driver string
}

// NewStatsStore creates a StatsStore over db.
func NewStatsStore(db DB, driver string) *StatsStore {
	return &StatsStore{db: db, driver: driver}
}

// Stats implements catalog.StatsProvider. Equipment without reservations is
// absent from the result.
func (s *StatsStore) Stats(ctx context.Context, ids []int64) (map[int64]catalog.ReservationStats, error) {
	out := make(map[int64]catalog.ReservationStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(waitingStatuses)+len(finishedStatuses)+len(ids))
	for _, st := range waitingStatuses {
		args = append(args, st)
	}
	for _, st := range finishedStatuses {
		args = append(args, st)
	}
	args = append(args, int64Args(ids)...)

	q := fmt.Sprintf(`
		SELECT equipment_id,
			SUM(CASE WHEN UPPER(status) IN (%s) THEN 1 ELSE 0 END),
			SUM(CASE WHEN UPPER(status) NOT IN (%s) THEN 1 ELSE 0 END)
		FROM reservations
		WHERE equipment_id IN (%s)
		GROUP BY equipment_id`,
		placeholders(len(waitingStatuses)), placeholders(len(finishedStatuses)), placeholders(len(ids)))

	rows, err := s.db.QueryContext(ctx, rebind(s.driver, q), args...)
	if err != nil {
		return nil, fmt.Errorf("reservation stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id              int64
			waiting, active int64
		)
		if err := rows.Scan(&id, &waiting, &active); err != nil {
			return nil, fmt.Errorf("reservation stats: %w", err)
		}
		out[id] = catalog.ReservationStats{Waiting: int(waiting), Active: int(active)}
	}
	return out, rows.Err()
}
