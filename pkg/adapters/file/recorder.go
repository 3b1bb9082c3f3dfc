package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/epa/pkg/domain"
)

// record is the on-disk form of one subject's trace.
type record struct {
	Subject     domain.Subject      `json:"subject"`
	Transitions []domain.Transition `json:"transitions"`
}

// Recorder implements ports.TraceStore using the local filesystem.
// It stores one JSON file per subject in a configured directory and
// rewrites it atomically on every transition.
type Recorder struct {
	BasePath string
	mu       sync.Mutex
}

// NewRecorder creates a Recorder with the given base path.
// If basePath is empty, it defaults to ".epa/traces".
func NewRecorder(basePath string) *Recorder {
	if basePath == "" {
		basePath = filepath.Join(".epa", "traces")
	}
	return &Recorder{BasePath: basePath}
}

func (r *Recorder) path(id domain.SubjectID) string {
	return filepath.Join(r.BasePath, strconv.FormatUint(uint64(id), 10)+".json")
}

// Record appends t to the trace file of subject.
func (r *Recorder) Record(ctx context.Context, subject domain.Subject, t domain.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.load(subject.ID)
	if err != nil && err != domain.ErrSubjectNotFound {
		return err
	}
	if rec == nil {
		rec = &record{Subject: subject}
	}
	rec.Transitions = append(rec.Transitions, t)
	return r.save(rec)
}

// Subjects lists the subjects with a trace file, ordered by ID.
func (r *Recorder) Subjects(ctx context.Context) ([]domain.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.Subject{}, nil
		}
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}

	var subjects []domain.Subject
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}
		rec, err := r.load(domain.SubjectID(id))
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, rec.Subject)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}

// Transitions reads the trace file of one subject.
func (r *Recorder) Transitions(ctx context.Context, id domain.SubjectID) ([]domain.Transition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, err := r.load(id)
	if err != nil {
		return nil, err
	}
	return rec.Transitions, nil
}

func (r *Recorder) load(id domain.SubjectID) (*record, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trace of subject %d: %w", id, err)
	}
	return &rec, nil
}

// save writes to a temporary file first, syncs it, and then renames it to
// the destination.
func (r *Recorder) save(rec *record) error {
	if err := os.MkdirAll(r.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure trace directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(r.BasePath, "tmp-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	dest := r.path(rec.Subject.ID)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove existing trace file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file to trace file: %w", err)
	}
	return nil
}
