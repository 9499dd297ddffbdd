package journal

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BeginRun creates a run row and returns its id.
func (j *Journal) BeginRun(simulation bool) (string, error) {
	id := uuid.NewString()
	_, err := j.db.Exec(
		`INSERT INTO runs (id, started_at, simulation) VALUES (?, ?, ?)`,
		id, time.Now().Format(time.RFC3339), simulation,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// LatestRun returns the most recently started run.
func (j *Journal) LatestRun() (*Run, error) {
	var run Run
	var startedAt string
	err := j.db.QueryRow(
		`SELECT id, started_at, simulation FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &startedAt, &run.Simulation)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no tracking runs recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	run.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse run start time: %w", err)
	}
	return &run, nil
}

// InsertEvent appends one event row.
func (j *Journal) InsertEvent(e *Event) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := j.db.Exec(
		`INSERT INTO events
		 (run_id, kind, app_id, app_name, old_state, new_state, phase, detail, bytes_downloaded, bytes_total, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Kind, e.AppID, e.AppName, e.OldState, e.NewState,
		e.Phase, e.Detail, e.BytesDownloaded, e.BytesTotal,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Kind, err)
	}
	return nil
}

// ListEvents returns a run's events in insertion order.
func (j *Journal) ListEvents(runID string) ([]Event, error) {
	rows, err := j.db.Query(
		`SELECT id, run_id, kind, app_id, app_name, old_state, new_state, phase, detail, bytes_downloaded, bytes_total, timestamp
		 FROM events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.Kind, &e.AppID, &e.AppName, &e.OldState,
			&e.NewState, &e.Phase, &e.Detail, &e.BytesDownloaded, &e.BytesTotal, &ts,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse event timestamp: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// AppResults reduces a run's state-change events to each app's final
// observed state, in order of last activity.
func (j *Journal) AppResults(runID string) ([]AppResult, error) {
	events, err := j.ListEvents(runID)
	if err != nil {
		return nil, err
	}

	byApp := make(map[string]*AppResult)
	var order []string
	for i := range events {
		e := &events[i]
		if e.Kind != KindStateChange || e.AppID == "" {
			continue
		}
		r, ok := byApp[e.AppID]
		if !ok {
			r = &AppResult{AppID: e.AppID}
			byApp[e.AppID] = r
			order = append(order, e.AppID)
		}
		if e.AppName != "" {
			r.AppName = e.AppName
		}
		r.FinalState = e.NewState
		if e.BytesDownloaded > 0 {
			r.BytesDownloaded = e.BytesDownloaded
		}
		if e.BytesTotal > 0 {
			r.BytesTotal = e.BytesTotal
		}
		r.LastSeen = e.Timestamp
	}

	results := make([]AppResult, 0, len(order))
	for _, id := range order {
		results = append(results, *byApp[id])
	}
	return results, nil
}

// PhaseTimeline returns a run's phase events in order.
func (j *Journal) PhaseTimeline(runID string) ([]Event, error) {
	events, err := j.ListEvents(runID)
	if err != nil {
		return nil, err
	}
	var phases []Event
	for _, e := range events {
		if e.Kind == KindPhase {
			phases = append(phases, e)
		}
	}
	return phases, nil
}
