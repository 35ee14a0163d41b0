package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// TurnRecord is one audited generation turn.
type TurnRecord struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Stage     string    `json:"stage"`
	UserInput string    `json:"user_input"`
	RawReply  string    `json:"raw_reply"`
	Metadata  string    `json:"metadata"`
}

// TurnMetadata describes how a turn went, stored as JSON alongside it.
type TurnMetadata struct {
	Model        string        `json:"model"`
	ResponseTime time.Duration `json:"response_time_ms"`
	HasImage     bool          `json:"has_image"`
	Error        *string       `json:"error,omitempty"`
}

// TurnLog is a best-effort sqlite audit trail of every generation turn.
// Failures to record never fail the turn itself.
type TurnLog struct {
	db *sql.DB
}

func NewTurnLog(path string) (*TurnLog, error) {
	if path == "" {
		path = "./turns.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open turn log database: %w", err)
	}

	tl := &TurnLog{db: db}
	if err := tl.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create turn log tables: %w", err)
	}
	return tl, nil
}

func (tl *TurnLog) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		stage TEXT NOT NULL,
		user_input TEXT NOT NULL,
		raw_reply TEXT NOT NULL,
		metadata TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id);
	CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON turns(timestamp);
	`

	_, err := tl.db.Exec(schema)
	return err
}

func (tl *TurnLog) Record(sessionID, stage, userInput, rawReply string, metadata TurnMetadata) error {
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal turn metadata: %w", err)
	}

	_, err = tl.db.Exec(`
		INSERT INTO turns (session_id, stage, user_input, raw_reply, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, stage, userInput, rawReply, string(metadataJSON))
	return err
}

// Recent returns the newest records first, for the review CLI mode.
func (tl *TurnLog) Recent(limit int) ([]TurnRecord, error) {
	rows, err := tl.db.Query(`
		SELECT id, timestamp, session_id, stage, user_input, raw_reply, metadata
		FROM turns ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var records []TurnRecord
	for rows.Next() {
		var rec TurnRecord
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.SessionID, &rec.Stage, &rec.UserInput, &rec.RawReply, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan turn record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (tl *TurnLog) Close() error {
	return tl.db.Close()
}
