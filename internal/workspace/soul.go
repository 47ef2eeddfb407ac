// Package workspace loads the persona document that opens every system
// prompt.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// DefaultSoulPrompt is used when no persona document is found or the file
// is empty.
const DefaultSoulPrompt = "You are an AI assistant named Bionic, helpful and knowledgeable."

// FallbackPrompt returns the fallback persona for a bot called name.
func FallbackPrompt(name string) string {
	if name == "" || name == "Bionic" {
		return DefaultSoulPrompt
	}
	return fmt.Sprintf("You are an AI assistant named %s, helpful and knowledgeable.", name)
}

// SoulProvider loads the persona prompt.
type SoulProvider interface {
	Load() (string, error)
}

// SoulLoader implements SoulProvider with stat-based cache invalidation:
// every Load stats the file and re-reads it only when the modification
// time moved.
type SoulLoader struct {
	path     string
	fallback string

	mu       sync.RWMutex
	content  string
	modTime  time.Time
	notFound bool
}

// Compile-time interface check.
var _ SoulProvider = (*SoulLoader)(nil)

// NewSoulLoader creates a SoulLoader for the persona document at path.
// fallback is returned while the file is missing or empty; empty means
// DefaultSoulPrompt.
func NewSoulLoader(path, fallback string) *SoulLoader {
	if fallback == "" {
		fallback = DefaultSoulPrompt
	}
	return &SoulLoader{path: path, fallback: fallback}
}

// Path returns the persona document path.
func (s *SoulLoader) Path() string { return s.path }

// Load returns the current persona, hot-reloading on file changes.
//
// Behavior:
//   - File missing or empty → fallback, no error.
//   - ModTime unchanged → cached content.
//   - Other read errors are returned; callers decide on a fallback.
func (s *SoulLoader) Load() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.markNotFound()
			return s.fallback, nil
		}
		return "", fmt.Errorf("workspace: stat persona: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("workspace: persona path %s is a directory", s.path)
	}

	modTime := info.ModTime()

	s.mu.RLock()
	if !s.notFound && s.modTime.Equal(modTime) && s.content != "" {
		cached := s.content
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.markNotFound()
			return s.fallback, nil
		}
		return "", fmt.Errorf("workspace: read persona: %w", err)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		s.markNotFound()
		return s.fallback, nil
	}

	s.mu.Lock()
	s.content = content
	s.modTime = modTime
	s.notFound = false
	s.mu.Unlock()

	return content, nil
}

func (s *SoulLoader) markNotFound() {
	s.mu.Lock()
	s.notFound = true
	s.content = ""
	s.modTime = time.Time{}
	s.mu.Unlock()
}
