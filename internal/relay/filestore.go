package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	lockRetryDelay = 25 * time.Millisecond
	lockAcquireMax = 2 * time.Second
	lockStaleAfter = 10 * time.Second
)

// FileStore keeps the pending queue in a single JSON file so events survive
// restarts without a database. Writes go through a temp file and rename, and
// a sidecar lock file guards against a second process mutating the file.
type FileStore struct {
	path     string
	lockPath string
}

// NewFileStore stores queued events under dataDir/pending_events.json.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dataDir, "pending_events.json")
	return &FileStore{path: path, lockPath: path + ".lock"}, nil
}

func (s *FileStore) Append(ctx context.Context, ev Event) error {
	return s.mutate(ctx, func(events []Event) ([]Event, error) {
		return append(events, ev), nil
	})
}

func (s *FileStore) NextDue(ctx context.Context, now time.Time) (*Event, error) {
	if err := s.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer s.releaseLock()

	events, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	for i := range events {
		if !events[i].NextAttemptAt.After(now) {
			events[i].NextAttemptAt = now.Add(claimLease)
			if err := s.save(events); err != nil {
				return nil, err
			}
			ev := events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (s *FileStore) Reschedule(ctx context.Context, id string, attempts int, next time.Time) error {
	return s.mutate(ctx, func(events []Event) ([]Event, error) {
		for i := range events {
			if events[i].ID == id {
				events[i].Attempts = attempts
				events[i].NextAttemptAt = next
				break
			}
		}
		return events, nil
	})
}

func (s *FileStore) Remove(ctx context.Context, id string) error {
	return s.mutate(ctx, func(events []Event) ([]Event, error) {
		for i := range events {
			if events[i].ID == id {
				return append(events[:i], events[i+1:]...), nil
			}
		}
		return events, nil
	})
}

func (s *FileStore) mutate(ctx context.Context, fn func([]Event) ([]Event, error)) error {
	if err := s.acquireLock(ctx); err != nil {
		return err
	}
	defer s.releaseLock()

	events, err := s.load()
	if err != nil {
		return err
	}
	events, err = fn(events)
	if err != nil {
		return err
	}
	return s.save(events)
}

func (s *FileStore) load() ([]Event, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode queue file: %w", err)
	}
	return events, nil
}

func (s *FileStore) save(events []Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue file: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write queue file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace queue file: %w", err)
	}
	return nil
}

// acquireLock creates the sidecar lock file exclusively, retrying until the
// context is done or the acquisition window elapses. A lock file older than
// lockStaleAfter is treated as left behind by a crashed process and broken.
func (s *FileStore) acquireLock(ctx context.Context) error {
	deadline := time.Now().Add(lockAcquireMax)
	for {
		f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d", os.Getpid())
			return f.Close()
		}
		if !errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("acquire queue lock: %w", err)
		}
		if info, statErr := os.Stat(s.lockPath); statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(s.lockPath)
			continue
		}
		if time.Now().After(deadline) {
			return errors.New("acquire queue lock: timed out")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
}

func (s *FileStore) releaseLock() {
	os.Remove(s.lockPath)
}
