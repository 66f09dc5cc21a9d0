// Package audit records user commands issued against the fraud API.
package audit

import (
	"context"
	"fmt"
	"time"
)

// Command names recorded in the journal.
const (
	CommandSubmit     = "submit_transaction"
	CommandTransition = "set_alert_status"
)

// Entry is one journaled command.
type Entry struct {
	ID        int64                  `json:"id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	SessionID string                 `json:"session_id,omitempty"`
	Command   string                 `json:"command"`
	Target    string                 `json:"target"`
	Success   bool                   `json:"success"`
	Error     string                 `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Recorder persists command entries.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Reader returns recently recorded entries, newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Backends accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Open creates the recorder for backend at path.
func Open(backend, path string) (Recorder, error) {
	switch backend {
	case BackendSQLite:
		return NewSQLiteJournal(path)
	case BackendFile:
		return NewFileJournal(FileConfig{Path: path})
	}
	return nil, fmt.Errorf("unknown audit backend %q", backend)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Close() error { return nil }
