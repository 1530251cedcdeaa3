package indexdb

import (
	"context"
	"database/sql"
	"strings"
)

type TransitionRow struct {
	Tick     uint64
	MobID    string
	Selector string
	Kind     string
	Reason   string
	Priority int
	Name     string
	Flags    []string
	Error    string
}

// GoalStat aggregates lifecycle counts per goal name.
type GoalStat struct {
	Name   string
	Starts int
	Stops  int
	Faults int
}

// TransitionsForMob returns the mob's transitions oldest first. limit <= 0
// means no limit.
func (s *SQLiteIndex) TransitionsForMob(ctx context.Context, mobID string, limit int) ([]TransitionRow, error) {
	q := `SELECT tick,mob_id,selector,kind,reason,priority,name,flags,error
		FROM transitions WHERE mob_id = ? ORDER BY tick, seq`
	args := []any{mobID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TransitionRow
	for rows.Next() {
		var (
			r             TransitionRow
			tick          int64
			reason, fault sql.NullString
			flags         string
		)
		if err := rows.Scan(&tick, &r.MobID, &r.Selector, &r.Kind, &reason, &r.Priority, &r.Name, &flags, &fault); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		r.Reason = reason.String
		r.Error = fault.String
		if flags != "" {
			r.Flags = strings.Split(flags, "|")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GoalStats counts starts, stops and faults per goal, by name.
func (s *SQLiteIndex) GoalStats(ctx context.Context) ([]GoalStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,
			SUM(CASE WHEN kind = 'START' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'STOP' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'FAULT' THEN 1 ELSE 0 END)
		FROM transitions GROUP BY name ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GoalStat
	for rows.Next() {
		var st GoalStat
		if err := rows.Scan(&st.Name, &st.Starts, &st.Stops, &st.Faults); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// StopReasons counts STOP transitions per reason.
func (s *SQLiteIndex) StopReasons(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(reason,''), COUNT(*) FROM transitions WHERE kind = 'STOP' GROUP BY reason`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[reason] = n
	}
	return out, rows.Err()
}

// Deaths returns mob ids that died at or after fromTick, in tick order.
func (s *SQLiteIndex) Deaths(ctx context.Context, fromTick uint64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT mob_id FROM deaths WHERE tick >= ? ORDER BY tick, mob_id`, int64(fromTick))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// TuningDigest returns the digest of the last recorded tuning, if any.
func (s *SQLiteIndex) TuningDigest(ctx context.Context) (string, bool, error) {
	var d string
	err := s.db.QueryRowContext(ctx, `SELECT digest FROM config WHERE name = 'tuning'`).Scan(&d)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return d, true, nil
}
