package callstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink writes each call's log to its own file under dir, one line per
// entry in the form "[RFC3339 ts] SPEAKER text". The file is opened in append
// mode for every write, so entries that arrive after the call ended (status
// and recording events) land in the same file.
type FileSink struct {
	dir   string
	mu    sync.Mutex
	paths map[string]string
}

// NewFileSink creates the log directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create call log directory: %w", err)
	}
	return &FileSink{
		dir:   dir,
		paths: make(map[string]string),
	}, nil
}

func (f *FileSink) Append(ctx context.Context, entry CallLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, ok := f.paths[entry.CallSid]
	if !ok {
		name := fmt.Sprintf("call_%s_%s.log", time.Now().UTC().Format("20060102_150405"), entry.CallSid)
		path = filepath.Join(f.dir, name)
		f.paths[entry.CallSid] = path
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open call log file: %w", err)
	}
	defer file.Close()

	line := fmt.Sprintf("[%s] %s %s\n", entry.Timestamp.Format(time.RFC3339), entry.Speaker, entry.Text)
	if _, err := file.WriteString(line); err != nil {
		return fmt.Errorf("failed to write call log entry: %w", err)
	}
	return nil
}

// Path returns the log file path for a call, if any entry has been written.
func (f *FileSink) Path(callSid string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.paths[callSid]
	return path, ok
}
