package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal stores entries in a local SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal opens or creates the journal at dbPath.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &SQLiteJournal{db: db}
	if err := j.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS command_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		session_id TEXT,
		command TEXT NOT NULL,
		target TEXT NOT NULL,
		success INTEGER NOT NULL,
		error TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_command_log_timestamp ON command_log(timestamp);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record implements Recorder.
func (j *SQLiteJournal) Record(ctx context.Context, entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var details []byte
	if len(entry.Details) > 0 {
		var err error
		details, err = json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("serializing details: %w", err)
		}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO command_log (timestamp, session_id, command, target, success, error, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.Timestamp, entry.SessionID, entry.Command, entry.Target,
		boolToInt(entry.Success), nullString(entry.Error), nullString(string(details)))
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// Recent implements Reader.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, timestamp, session_id, command, target, success, error, details
		FROM command_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query command log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                         Entry
			sessionID, errMsg, detail sql.NullString
			success                   int
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &sessionID, &e.Command, &e.Target, &success, &errMsg, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		e.SessionID = sessionID.String
		e.Success = success == 1
		e.Error = errMsg.String
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &e.Details); err != nil {
				return nil, fmt.Errorf("decoding details for entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close implements Recorder.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
