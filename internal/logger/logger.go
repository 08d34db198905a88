// Package logger appends emitted warnings to a JSONL audit trail.
package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/gzhole/agentwatch/internal/detect"
	"github.com/gzhole/agentwatch/internal/redact"
)

// AuditRecord is one logged warning emission.
type AuditRecord struct {
	Timestamp  string `json:"timestamp"`
	Session    string `json:"session"`
	Category   string `json:"category"`
	Severity   string `json:"severity"`
	Signal     string `json:"signal"`
	Message    string `json:"message"`
	Evidence   []int  `json:"evidence,omitempty"`
	DetectedAt int    `json:"detected_at"`
	Degraded   bool   `json:"degraded,omitempty"`
}

// AuditLogger writes append-only warning records. Safe for concurrent use.
type AuditLogger struct {
	file *os.File
	mu   sync.Mutex
}

func New(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

// Log appends one warning. Messages pass through secret redaction before
// touching disk.
func (l *AuditLogger) Log(session string, w detect.Warning, degraded bool) error {
	rec := AuditRecord{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Session:    session,
		Category:   string(w.Category),
		Severity:   w.Severity.String(),
		Signal:     w.Signal,
		Message:    redact.Redact(w.Message),
		Evidence:   w.Evidence,
		DetectedAt: w.DetectedAt,
		Degraded:   degraded,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
