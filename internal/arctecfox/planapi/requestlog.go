package planapi

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gartstein/arctecfox/internal/arctecfox/models"
)

// RequestLog appends one JSON line per plan request to a file.
type RequestLog struct {
	mu   sync.Mutex
	path string
}

type requestEntry struct {
	Timestamp string                  `json:"timestamp"`
	Input     models.AssetDescription `json:"input"`
}

func NewRequestLog(path string) *RequestLog {
	return &RequestLog{path: path}
}

func (l *RequestLog) Append(at time.Time, asset models.AssetDescription) error {
	line, err := json.Marshal(requestEntry{
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Input:     asset,
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open request log: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return fmt.Errorf("write request log: %w", err)
	}
	return f.Close()
}
