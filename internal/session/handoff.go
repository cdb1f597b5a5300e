package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// HandoffRecord is the minimal state a second process needs to reconnect to a
// running deployment. It exists on disk if and only if a tunnel for an active
// session is believed alive.
type HandoffRecord struct {
	JobID string `json:"job_id"`
	Port  string `json:"port"`
	Node  string `json:"node"`
}

// ErrNoHandoff indicates no deployment session has recorded itself.
var ErrNoHandoff = errors.New("no active deployment session found")

// DefaultHandoffPath is the well-known location of the handoff record.
func DefaultHandoffPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".llmdeploy", "session.json")
	}
	return filepath.Join(home, ".llmdeploy", "session.json")
}

// WriteHandoff persists the record, creating parent directories as needed.
func WriteHandoff(path string, rec HandoffRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal handoff record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write handoff record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write handoff record: %w", err)
	}
	return nil
}

// LoadHandoff reads the record back; ErrNoHandoff when the file is absent.
func LoadHandoff(path string) (HandoffRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return HandoffRecord{}, ErrNoHandoff
	}
	if err != nil {
		return HandoffRecord{}, fmt.Errorf("read handoff record: %w", err)
	}
	var rec HandoffRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return HandoffRecord{}, fmt.Errorf("parse handoff record: %w", err)
	}
	return rec, nil
}

// RemoveHandoff deletes the record; missing files are fine.
func RemoveHandoff(path string) error {
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
