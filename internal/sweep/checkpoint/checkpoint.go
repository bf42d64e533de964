// Package checkpoint persists the set of already-processed message ids for
// checkpoint-based sweeps. One JSON record per base path; the set only
// grows. A single run owns the file for its duration; concurrent runs
// against the same base path must be serialized by the caller.
package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// FileName is the hidden record kept at the sweep base path.
const FileName = ".sweep_checkpoint.json"

type record struct {
	ProcessedIDs []string `json:"processed_ids"`
}

// Set tracks processed ids for one base path. It implements sweep.Tracker.
type Set struct {
	basePath string
	ids      map[string]struct{}
}

// Load reads the checkpoint record under basePath. A missing file is a
// first run and yields an empty set.
func Load(basePath string) (*Set, error) {
	s := &Set{basePath: basePath, ids: make(map[string]struct{})}

	data, err := os.ReadFile(filepath.Join(basePath, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	for _, id := range rec.ProcessedIDs {
		s.ids[id] = struct{}{}
	}
	return s, nil
}

// Seen reports whether id was processed by an earlier run.
func (s *Set) Seen(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// MarkDone records id as processed. The change is in memory until Flush.
func (s *Set) MarkDone(id string) {
	s.ids[id] = struct{}{}
}

// Len returns the number of tracked ids.
func (s *Set) Len() int { return len(s.ids) }

// IDs returns the tracked ids in sorted order.
func (s *Set) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Flush overwrites the checkpoint record with the current set.
func (s *Set) Flush() error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record{ProcessedIDs: s.IDs()}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.basePath, FileName), data, 0o644)
}
