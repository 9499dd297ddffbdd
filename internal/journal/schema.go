package journal

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    started_at TIMESTAMP NOT NULL,
    simulation BOOLEAN NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    app_id TEXT,
    app_name TEXT,
    old_state TEXT,
    new_state TEXT,
    phase TEXT,
    detail TEXT,
    bytes_downloaded INTEGER,
    bytes_total INTEGER,
    timestamp TIMESTAMP NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
CREATE INDEX IF NOT EXISTS idx_events_app ON events(run_id, app_id);
`
