// Package memory holds long-term memory: a small, deduplicated, capped list
// of durable facts per group, persisted as a single JSON document.
package memory

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// DefaultLimit is the per-group entry cap.
const DefaultLimit = 100

// DefaultImportance is the weight given to facts extracted from replies.
const DefaultImportance = 1.0

// hashLen is the number of hex characters kept from the content digest.
const hashLen = 8

// ErrEmptyContent is returned when a blank fact is added.
var ErrEmptyContent = errors.New("memory: empty content")

// Entry is one remembered fact.
type Entry struct {
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Importance float64   `json:"importance"`
	Hash       string    `json:"hash"`
}

// timestampLayouts are tried in order when decoding an entry. Files written
// by older tools carry ISO-8601 timestamps without a zone offset.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as zone-less ISO-8601
// ones, which are read in local time.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	var raw struct {
		plain
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry(raw.plain)
	e.Timestamp = time.Time{}
	if raw.Timestamp == "" {
		return nil
	}
	ts, err := parseTimestamp(raw.Timestamp)
	if err != nil {
		return err
	}
	e.Timestamp = ts
	return nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("memory: unrecognized timestamp %q", s)
}

// Store manages long-term memory entries per group.
// Implementations must be safe for concurrent use.
type Store interface {
	// AddMemory stores content for group unless an entry with the same
	// content hash already exists. It reports whether an entry was added.
	AddMemory(group, content string, importance float64) (bool, error)

	// GetMemory returns the most recent limit contents for group, oldest
	// first. limit <= 0 returns every entry.
	GetMemory(group string, limit int) []string

	// Entries returns a copy of every entry stored for group.
	Entries(group string) []Entry

	// Groups returns the ids of all groups with at least one entry.
	Groups() []string
}

// ContentHash returns the short dedup key for content.
func ContentHash(content string) string {
	sum := blake3.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:hashLen]
}

// normalize trims content and collapses internal whitespace runs.
func normalize(content string) string {
	return strings.Join(strings.Fields(content), " ")
}
