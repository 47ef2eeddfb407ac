package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"sync"
	"time"
)

// FileConfig configures a FileStore.
type FileConfig struct {
	// Path is the JSON document backing the store. Empty keeps entries in
	// memory only.
	Path string

	// Limit caps entries per group. Zero means DefaultLimit.
	Limit int

	Logger *slog.Logger
}

// FileStore is a Store persisted as one JSON object keyed by group id.
// The whole document is rewritten after every insert.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	limit  int
	groups map[string][]Entry
	logger *slog.Logger

	// blocked is returned by every write when an unreadable file could not
	// be moved aside, so it is never overwritten.
	blocked error

	// now is injectable for testing. Defaults to time.Now.
	now func() time.Time
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore loads the document at cfg.Path. A missing file starts empty.
// An unreadable or corrupt file is renamed to <path>.corrupt and the store
// starts empty; if the rename fails, writes are refused.
func NewFileStore(cfg FileConfig) *FileStore {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &FileStore{
		path:   cfg.Path,
		limit:  cfg.Limit,
		groups: make(map[string][]Entry),
		logger: cfg.Logger,
		now:    time.Now,
	}
	if cfg.Path == "" {
		return s
	}

	groups, err := load(cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		aside := cfg.Path + ".corrupt"
		if rerr := os.Rename(cfg.Path, aside); rerr != nil {
			s.blocked = fmt.Errorf("memory: %s is unreadable and could not be moved aside: %w", cfg.Path, rerr)
			s.logger.Error("memory: unreadable long-term memory file, writes disabled",
				"path", cfg.Path,
				"error", err,
				"rename_error", rerr,
			)
			return s
		}
		s.logger.Warn("memory: unreadable long-term memory file moved aside",
			"path", cfg.Path,
			"moved_to", aside,
			"error", err,
		)
	default:
		s.groups = groups
	}
	return s
}

func load(path string) (map[string][]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	groups := make(map[string][]Entry)
	if len(data) == 0 {
		return groups, nil
	}
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	// Hashes written by other tools use another digest; recompute them so
	// dedup matches new facts against old ones.
	for _, entries := range groups {
		for i := range entries {
			entries[i].Hash = ContentHash(normalize(entries[i].Content))
		}
	}
	return groups, nil
}

// AddMemory implements Store. Whitespace runs in content are collapsed
// before hashing. The entry is kept in memory even when the write fails.
func (s *FileStore) AddMemory(group, content string, importance float64) (bool, error) {
	content = normalize(content)
	if content == "" {
		return false, ErrEmptyContent
	}
	hash := ContentHash(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.groups[group]
	for _, e := range entries {
		if e.Hash == hash {
			return false, nil
		}
	}

	entries = append(entries, Entry{
		Content:    content,
		Timestamp:  s.now(),
		Importance: importance,
		Hash:       hash,
	})
	if len(entries) > s.limit {
		entries = slices.Clone(entries[len(entries)-s.limit:])
	}
	s.groups[group] = entries

	if err := s.persist(); err != nil {
		return true, fmt.Errorf("memory: saving %s: %w", s.path, err)
	}
	return true, nil
}

// GetMemory implements Store.
func (s *FileStore) GetMemory(group string, limit int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.groups[group]
	if limit > 0 && limit < len(entries) {
		entries = entries[len(entries)-limit:]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Content
	}
	return out
}

// Entries implements Store.
func (s *FileStore) Entries(group string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.groups[group])
}

// Groups implements Store.
func (s *FileStore) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.groups))
	for id, entries := range s.groups {
		if len(entries) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// persist atomically rewrites the backing file. Must be called with mu held.
func (s *FileStore) persist() error {
	if s.path == "" {
		return nil
	}
	if s.blocked != nil {
		return s.blocked
	}

	data, err := json.MarshalIndent(s.groups, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding memory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating memory directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".memory-*.json")
	if err != nil {
		return fmt.Errorf("creating temp memory file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing memory data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp memory file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming memory file to %s: %w", s.path, err)
	}

	success = true
	return nil
}
