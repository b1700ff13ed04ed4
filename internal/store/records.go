// Package store persists best-effort battle records. A write failure
// is the caller's to log and swallow; gameplay never depends on it.
package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/needahmed/pokemon-pvp-game/internal/room"
)

// FileRecords appends one JSON line per finished battle.
type FileRecords struct {
	mu   sync.Mutex
	path string
}

func NewFileRecords(path string) *FileRecords {
	return &FileRecords{path: path}
}

func (s *FileRecords) Record(rec room.Record) error {
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}
