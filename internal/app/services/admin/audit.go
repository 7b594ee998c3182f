package admin

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Sink receives a copy of every audit entry beyond the store, typically for
// an append-only file an operator can tail.
type Sink interface {
	Write(entry SinkEntry) error
}

// SinkEntry is the JSONL shape written to audit sinks.
type SinkEntry struct {
	Time          time.Time `json:"time"`
	AdminID       string    `json:"admin_id"`
	Action        string    `json:"action"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// FileSink appends audit entries as JSONL.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens (or creates) the audit file for appending. An empty path
// yields a nil sink, which callers treat as disabled.
func NewFileSink(path string) (*FileSink, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(entry SinkEntry) error {
	if s == nil || s.file == nil {
		return nil
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.file.Write(append(b, '\n'))
	return err
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	return s.file.Close()
}
