package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// QueryRecord is one line of the JSONL query log.
type QueryRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Question    string    `json:"question"`
	AnswerChars int       `json:"answer_chars"`
	Sources     []string  `json:"sources"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	Model       string    `json:"model"`
	Success     bool      `json:"success"`
}

// QueryLog appends one JSON line per answered query. Safe for concurrent use.
type QueryLog struct {
	mu   sync.Mutex
	file *os.File
}

// NewQueryLog opens (or creates) the log file at path for appending.
func NewQueryLog(path string) (*QueryLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open query log: %w", err)
	}
	return &QueryLog{file: file}, nil
}

// Append writes one record. The log is an audit trail, not part of the answer
// path; callers treat errors as non-fatal.
func (l *QueryLog) Append(rec QueryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.file.Write(append(data, '\n'))
	return err
}

// Close closes the underlying file.
func (l *QueryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
