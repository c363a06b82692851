package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/qbank/internal/images"
)

// RunStatus represents the state of a pipeline run.
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusExtracting RunStatus = "extracting"
	StatusIndexing   RunStatus = "indexing"
	StatusChecking   RunStatus = "checking"
	StatusRendering  RunStatus = "rendering"
	StatusCompleted  RunStatus = "completed"
	StatusPartial    RunStatus = "partial"
	StatusFailed     RunStatus = "failed"
)

// ReportFile is the name of the run report written into the output directory.
const ReportFile = "run_report.json"

// Run tracks the state of one pipeline run.
type Run struct {
	mu sync.Mutex

	Input     string    `json:"input"`
	InputHash string    `json:"input_hash,omitempty"`
	Status    RunStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`

	Fetch     images.FetchSummary `json:"fetches"`
	Check     *images.Report      `json:"check,omitempty"`
	Documents []string            `json:"documents"`

	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`

	errors []string
}

// Progress counts what the run has processed so far.
type Progress struct {
	Rows              int      `json:"rows"`
	Records           int      `json:"records"`
	ImagesRequested   int      `json:"images_requested"`
	ImagesResolved    int      `json:"images_resolved"`
	ImagesUnavailable int      `json:"images_unavailable"`
	Indexed           int      `json:"indexed"`
	StoreMissing      int      `json:"store_missing"`
	Missing           int      `json:"missing"`
	Extra             int      `json:"extra"`
	Diagnostics       int      `json:"diagnostics"`
	Errors            []string `json:"errors"`
}

func NewRun(input string) *Run {
	now := time.Now()
	return &Run{
		Input:     input,
		Status:    StatusPending,
		Phase:     "pending",
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SetStatus updates run status atomically.
func (r *Run) SetStatus(status RunStatus, phase string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Status = status
	r.Phase = phase
	r.UpdatedAt = time.Now()
}

// AddError records a non-fatal shortfall.
func (r *Run) AddError(err string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
	r.Progress.Errors = r.errors
	r.UpdatedAt = time.Now()
}

// Update applies fn to the progress counters under the lock.
func (r *Run) Update(fn func(p *Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.Progress)
	r.UpdatedAt = time.Now()
}

// HasShortfalls reports whether any content-level problem was recorded.
func (r *Run) HasShortfalls() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.Progress
	return len(r.errors) > 0 || p.ImagesUnavailable > 0 || p.StoreMissing > 0 || p.Missing > 0
}

// RunSnapshot is a read-only, JSON-safe copy of run state.
type RunSnapshot struct {
	Input     string              `json:"input"`
	InputHash string              `json:"input_hash,omitempty"`
	Status    RunStatus           `json:"status"`
	Phase     string              `json:"phase"`
	Progress  Progress            `json:"progress"`
	Fetch     images.FetchSummary `json:"fetches"`
	Check     *images.Report      `json:"check,omitempty"`
	Documents []string            `json:"documents"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.Progress
	p.Errors = append([]string{}, r.errors...)
	docs := append([]string{}, r.Documents...)
	return RunSnapshot{
		Input:     r.Input,
		InputHash: r.InputHash,
		Status:    r.Status,
		Phase:     r.Phase,
		Progress:  p,
		Fetch:     r.Fetch,
		Check:     r.Check,
		Documents: docs,
		StartedAt: r.StartedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// Save writes the snapshot as indented JSON to dir/run_report.json.
func (r *Run) Save(dir string) (string, error) {
	data, err := json.MarshalIndent(r.Snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal run report: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(dir, ReportFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write run report: %w", err)
	}
	return path, nil
}

// LoadReport reads a run report written by Save.
func LoadReport(dir string) (RunSnapshot, error) {
	var snap RunSnapshot
	data, err := os.ReadFile(filepath.Join(dir, ReportFile))
	if err != nil {
		return snap, fmt.Errorf("read run report: %w", err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("decode run report: %w", err)
	}
	return snap, nil
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
