package store

import "fmt"

// schema creates every table the Memory Store needs, plus the
// session/timestamp indexes needed to keep common queries fast at 10^5
// rows. Grounded on migrations.go, simplified to this module's entity set.
const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tokens INTEGER,
	model TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_turns_session_created ON turns(session_id, created_at);

CREATE TABLE IF NOT EXISTS traces (
	trace_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	total_input_tokens INTEGER NOT NULL,
	total_output_tokens INTEGER NOT NULL,
	cost_usd REAL NOT NULL,
	iterations INTEGER NOT NULL,
	tools_called TEXT NOT NULL,
	success INTEGER NOT NULL,
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_traces_session_created ON traces(session_id, created_at);

CREATE TABLE IF NOT EXISTS tool_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	input_preview TEXT NOT NULL,
	output_preview TEXT NOT NULL,
	safety_tier TEXT NOT NULL,
	user_confirmed INTEGER,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tool_executions_session ON tool_executions(session_id, created_at);

CREATE TABLE IF NOT EXISTS profile_entries (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	confidence REAL NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS session_summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	summary_text TEXT NOT NULL,
	generated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_session_summaries_session ON session_summaries(session_id, generated_at);

CREATE TABLE IF NOT EXISTS chat_session_map (
	external_chat_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS scheduled_jobs (
	job_id TEXT PRIMARY KEY,
	cron_expression TEXT NOT NULL,
	prompt TEXT NOT NULL,
	next_run_time DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
