package orders

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileLog is an append-only JSON-lines order log, used as local fallback
// persistence when the Make relay cannot record orders.
type FileLog struct {
	mu   sync.Mutex
	path string
}

// NewFileLog creates a FileLog writing to <dataDir>/orders.jsonl.
func NewFileLog(dataDir string) *FileLog {
	return &FileLog{path: filepath.Join(dataDir, "orders.jsonl")}
}

// Append records one order. The write is a single O_APPEND call so
// concurrent appenders cannot interleave partial lines.
func (l *FileLog) Append(order Draft) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	line, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open order log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("append order: %w", err)
	}
	return nil
}
