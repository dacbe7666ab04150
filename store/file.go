package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sicko7947/approvalflow"
)

// FileStore implements approvalflow.RecordStore on a single JSON file.
// Every mutation re-reads the whole collection, applies the change in memory
// and replaces the file atomically, so a later read in any process sees it.
type FileStore struct {
	path   string
	logger zerolog.Logger
	mu     sync.Mutex
}

// FileStoreOption configures a FileStore
type FileStoreOption func(*FileStore)

// WithFileLogger sets the logger used to report unreadable storage
func WithFileLogger(logger zerolog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore creates a file-backed record store, creating the parent directory if needed
func NewFileStore(path string, opts ...FileStoreOption) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	s := &FileStore{
		path:   filepath.Clean(path),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	return s, nil
}

// Path returns the file backing the store
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(ctx context.Context, sub *approvalflow.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load()
	if err := s.prepareWrite("save submission", snap); err != nil {
		return err
	}
	for _, existing := range snap.submissions() {
		if existing.ID == sub.ID {
			return approvalflow.NewConflictError(sub.ID)
		}
	}

	snap.entries = append(snap.entries, fileEntry{sub: sub.Clone()})
	return s.persist("save submission", snap.entries)
}

func (s *FileStore) GetByID(ctx context.Context, id string) (*approvalflow.Submission, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	for _, sub := range s.load().submissions() {
		if sub.ID == id {
			return sub, true, nil
		}
	}
	return nil, false, nil
}

func (s *FileStore) GetAll(ctx context.Context) ([]*approvalflow.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	subs := reversedClones(s.load().submissions())
	sortNewestFirst(subs)
	return subs, nil
}

func (s *FileStore) GetByStatus(ctx context.Context, status approvalflow.Status) ([]*approvalflow.Submission, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterByStatus(all, status), nil
}

func (s *FileStore) Update(ctx context.Context, sub *approvalflow.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load()
	for i, entry := range snap.entries {
		if entry.sub != nil && entry.sub.ID == sub.ID {
			if err := s.prepareWrite("update submission", snap); err != nil {
				return err
			}
			snap.entries[i] = fileEntry{sub: sub.Clone()}
			return s.persist("update submission", snap.entries)
		}
	}

	return approvalflow.NewNotFoundError(sub.ID)
}

func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load()
	for i, entry := range snap.entries {
		if entry.sub != nil && entry.sub.ID == id {
			if err := s.prepareWrite("delete submission", snap); err != nil {
				return false, err
			}
			entries := append(snap.entries[:i], snap.entries[i+1:]...)
			if err := s.persist("delete submission", entries); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	return false, nil
}

func (s *FileStore) CountByStatus(ctx context.Context) (approvalflow.StatusCounts, error) {
	if err := ctx.Err(); err != nil {
		return approvalflow.StatusCounts{}, err
	}
	return countStatuses(s.load().submissions()), nil
}

// ClearAll removes every submission. Entries that never decoded as submissions stay on disk.
func (s *FileStore) ClearAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.load()
	if err := s.prepareWrite("clear submissions", snap); err != nil {
		return 0, err
	}

	kept := make([]fileEntry, 0)
	n := 0
	for _, entry := range snap.entries {
		if entry.sub != nil {
			n++
			continue
		}
		kept = append(kept, entry)
	}
	if err := s.persist("clear submissions", kept); err != nil {
		return 0, err
	}
	return n, nil
}

// Close is a no-op; the file is only open for the duration of each call
func (s *FileStore) Close() error {
	return nil
}

// fileEntry is one element of the on-disk array. Entries that fail to decode
// as a valid submission keep their original bytes and are written back unchanged.
type fileEntry struct {
	sub *approvalflow.Submission
	raw json.RawMessage
}

type fileSnapshot struct {
	entries   []fileEntry
	malformed bool
	readErr   error
}

func (snap fileSnapshot) submissions() []*approvalflow.Submission {
	subs := make([]*approvalflow.Submission, 0, len(snap.entries))
	for _, entry := range snap.entries {
		if entry.sub != nil {
			subs = append(subs, entry.sub)
		}
	}
	return subs
}

// load reads the collection in insertion order. A missing, unreadable or
// malformed file reads as empty; entries that are not valid submissions are
// hidden from readers but kept for the next write.
func (s *FileStore) load() fileSnapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fileSnapshot{}
		}
		s.logUnreadable(err)
		return fileSnapshot{readErr: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return fileSnapshot{}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logUnreadable(err)
		return fileSnapshot{malformed: true}
	}

	entries := make([]fileEntry, 0, len(raw))
	for _, msg := range raw {
		var sub approvalflow.Submission
		if err := json.Unmarshal(msg, &sub); err != nil || sub.ID == "" || !sub.Status.IsValid() {
			s.logger.Warn().
				Str("event", approvalflow.EventStorageUnreadable).
				Str("path", s.path).
				Msg("Skipping malformed submission record")
			entries = append(entries, fileEntry{raw: msg})
			continue
		}
		entries = append(entries, fileEntry{sub: &sub})
	}
	return fileSnapshot{entries: entries}
}

// prepareWrite refuses to overwrite a file it could not read and moves a
// malformed file aside so its content survives the next write
func (s *FileStore) prepareWrite(operation string, snap fileSnapshot) error {
	if snap.readErr != nil {
		return approvalflow.NewPersistenceError(operation, fmt.Errorf("read storage file: %w", snap.readErr))
	}
	if !snap.malformed {
		return nil
	}

	target := fmt.Sprintf("%s.corrupt-%d", s.path, time.Now().UnixNano())
	if err := os.Rename(s.path, target); err != nil {
		return approvalflow.NewPersistenceError(operation, fmt.Errorf("move malformed storage aside: %w", err))
	}
	s.logger.Warn().
		Str("event", approvalflow.EventStorageUnreadable).
		Str("path", s.path).
		Str("moved_to", target).
		Msg("Moved malformed storage file aside")
	return nil
}

// persist writes the full collection to a temp file and renames it over the original
func (s *FileStore) persist(operation string, entries []fileEntry) error {
	items := make([]json.RawMessage, 0, len(entries))
	for _, entry := range entries {
		if entry.sub == nil {
			items = append(items, entry.raw)
			continue
		}
		encoded, err := json.Marshal(entry.sub)
		if err != nil {
			return approvalflow.NewPersistenceError(operation, fmt.Errorf("marshal submission %s: %w", entry.sub.ID, err))
		}
		items = append(items, encoded)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return approvalflow.NewPersistenceError(operation, fmt.Errorf("marshal submissions: %w", err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return approvalflow.NewPersistenceError(operation, fmt.Errorf("create temp file: %w", err))
	}
	tmpName := tmp.Name()

	writeErr := func() error {
		if _, err := tmp.Write(data); err != nil {
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Sync(); err != nil {
			return fmt.Errorf("sync temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("close temp file: %w", err)
		}
		if err := os.Rename(tmpName, s.path); err != nil {
			return fmt.Errorf("replace storage file: %w", err)
		}
		return nil
	}()
	if writeErr != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return approvalflow.NewPersistenceError(operation, writeErr)
	}

	return nil
}

func (s *FileStore) logUnreadable(err error) {
	s.logger.Warn().
		Str("event", approvalflow.EventStorageUnreadable).
		Str("path", s.path).
		Err(err).
		Msg("Storage unreadable, treating as empty collection")
}

var _ approvalflow.RecordStore = (*FileStore)(nil)
