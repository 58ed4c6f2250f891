package params

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditRecord is one accepted parameter change. Records are append-only and
// written synchronously after the store commits the change that produced
// them, one line of JSON per record.
type AuditRecord struct {
	RecordID  string  `json:"record_id"`
	Timestamp string  `json:"timestamp"`
	Source    Source  `json:"source"`
	Name      string  `json:"name"`
	Old       float64 `json:"old"`
	New       float64 `json:"new"`
}

// AuditLogger appends AuditRecords to a line-oriented sink. A single mutex
// gives entries from concurrent sources one total order; each record's own
// timestamp still reflects when its update was applied.
type AuditLogger struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// OpenAuditLog opens (or creates) the audit file at path for appending.
func OpenAuditLog(path string) (*AuditLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &AuditLogger{w: f, c: f}, nil
}

// NewAuditLogger wraps an arbitrary writer, used by tests.
func NewAuditLogger(w io.Writer) *AuditLogger {
	return &AuditLogger{w: w}
}

// Append writes one record per change, in batch order.
func (al *AuditLogger) Append(changes []Change) error {
	al.mu.Lock()
	defer al.mu.Unlock()
	for _, ch := range changes {
		rec := AuditRecord{
			RecordID:  uuid.New().String(),
			Timestamp: ch.Timestamp.UTC().Format(time.RFC3339Nano),
			Source:    ch.Source,
			Name:      ch.Name,
			Old:       ch.Old,
			New:       ch.New,
		}
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal audit record: %w", err)
		}
		line = append(line, '\n')
		if _, err := al.w.Write(line); err != nil {
			return fmt.Errorf("append audit record: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the underlying file, if any.
func (al *AuditLogger) Close() error {
	al.mu.Lock()
	defer al.mu.Unlock()
	if al.c != nil {
		return al.c.Close()
	}
	return nil
}
