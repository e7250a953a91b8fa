// Package resume tracks which source rows have already been imported.
//
// The log is a JSON array of source IDs rewritten in full on every change.
// That matches the durability model of the question banks themselves: small
// files, whole-file writes, and a tolerance for reprocessing after a crash
// rather than losing records.
package resume

import (
	"encoding/json"
	"os"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Log is the durable record of processed source IDs. All mutations are
// whole-file rewrites guarded by a single mutex. Mark re-reads the file
// before writing so IDs appended by other writers survive.
type Log struct {
	path string

	mu  sync.Mutex
	ids map[string]bool
}

// Open loads the log at path. A missing file is an empty log; an
// unreadable or malformed file is an error.
func Open(path string) (*Log, error) {
	ids, err := readFile(path)
	if err != nil {
		return nil, err
	}
	l := &Log{path: path, ids: make(map[string]bool, len(ids))}
	for _, id := range ids {
		l.ids[id] = true
	}
	return l, nil
}

func readFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "resume: read log %s", path)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, eris.Wrapf(err, "resume: parse log %s", path)
	}
	return ids, nil
}

// Contains reports whether id has already been imported.
func (l *Log) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ids[id]
}

// Len returns the number of logged IDs.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// IDs returns a sorted copy of the logged IDs.
func (l *Log) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sorted()
}

// Mark durably appends ids to the log. Returns only after the rewritten
// file is on disk, so a logged ID is always backed by a durable append.
func (l *Log) Mark(ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	// Merge the on-disk state first: another process may have appended
	// since we last read.
	onDisk, err := readFile(l.path)
	if err != nil {
		return err
	}
	for _, id := range onDisk {
		l.ids[id] = true
	}
	for _, id := range ids {
		l.ids[id] = true
	}
	return l.write()
}

// Reset truncates the log to an empty list.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids = make(map[string]bool)
	return l.write()
}

func (l *Log) sorted() []string {
	all := make([]string, 0, len(l.ids))
	for id := range l.ids {
		all = append(all, id)
	}
	sort.Strings(all)
	return all
}

func (l *Log) write() error {
	data, err := json.Marshal(l.sorted())
	if err != nil {
		return eris.Wrap(err, "resume: encode log")
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return eris.Wrapf(err, "resume: write log %s", l.path)
	}
	return nil
}
