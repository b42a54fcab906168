package deploy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Manifest is the audit record of one deployment run.
type Manifest struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Outcome    string            `json:"outcome"`
	Error      string            `json:"error,omitempty"`
	Artifact   *ManifestArtifact `json:"artifact,omitempty"`
	Steps      []*StepRecord     `json:"steps"`
}

// ManifestArtifact records what was deployed.
type ManifestArtifact struct {
	Path    string `json:"path"`
	Triple  string `json:"triple"`
	Profile string `json:"profile"`
	Digest  string `json:"digest"`
	Size    int64  `json:"size"`
}

// StepRecord times one orchestrator step.
type StepRecord struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

func newManifest(runID string) *Manifest {
	return &Manifest{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Outcome:   "running",
	}
}

func (m *Manifest) begin(name string) *StepRecord {
	step := &StepRecord{Name: name, StartedAt: time.Now().UTC()}
	m.Steps = append(m.Steps, step)
	return step
}

func (s *StepRecord) end(err error) {
	s.Duration = time.Since(s.StartedAt).String()
	if err != nil {
		s.Error = err.Error()
	}
}

func (m *Manifest) failed(err error) *Manifest {
	m.Outcome = "failed"
	m.Error = err.Error()
	m.FinishedAt = time.Now().UTC()
	return m
}

// Save writes the manifest as JSON into dir, named by run ID.
func (m *Manifest) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, m.RunID+".json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
