package tournament

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is the tournament output consumed by the promotion layer: the
// ranked entries, the proposed candidate (if any qualified) and the
// robustness report.
type Artifact struct {
	GeneratedAt   string             `json:"generated_at"`
	Entries       []Entry            `json:"entries"`
	BestCandidate *Entry             `json:"best_candidate,omitempty"`
	Sensitivity   *SensitivityReport `json:"sensitivity,omitempty"`
}

// NewArtifact assembles the artifact from a ranked entry list.
func NewArtifact(ranked []Entry, sens *SensitivityReport) Artifact {
	a := Artifact{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:     ranked,
		Sensitivity: sens,
	}
	if best, ok := BestCandidate(ranked); ok {
		a.BestCandidate = &best
	}
	return a
}

// Write persists the artifact atomically.
func (a Artifact) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
