package corpus

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stateVersion = 1

// State summarizes the most recent corpus sweep.
type State struct {
	Version   int       `json:"version"`
	LastRunID string    `json:"last_run_id"`
	LastRunAt time.Time `json:"last_run_at"`
	Scanned   int       `json:"scanned"`
	Denied    int       `json:"denied"`
	Errors    int       `json:"errors"`
}

// DefaultStatePath is the corpus state location relative to the
// working directory.
func DefaultStatePath() string {
	return filepath.Join(".clawguard", "corpus-state.json")
}

// LoadState reads the state file; missing reads as zero state.
func LoadState(path string) State {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{Version: stateVersion}
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil || s.Version != stateVersion {
		return State{Version: stateVersion}
	}
	return s
}

// SaveState writes the state atomically with a trailing newline.
func SaveState(path string, s State) error {
	s.Version = stateVersion
	encoded, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal corpus state: %w", err)
	}
	encoded = append(encoded, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create corpus state dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "corpus-state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp corpus state: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(encoded); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp corpus state: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp corpus state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace corpus state: %w", err)
	}
	return nil
}
