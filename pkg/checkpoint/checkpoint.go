package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"venuescraper/pkg/logger"
)

// Phase identifies which engine owns a checkpoint. The two engines use
// distinct checkpoint files and never share state.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseEnriching  Phase = "enriching"
)

// Checkpoint records the progress of a single long-running job. It is
// created on the first unit of work, overwritten after every unit, deleted
// on successful completion and left on disk on any abnormal termination,
// forming the resume signal for the next invocation.
type Checkpoint struct {
	Phase     Phase     `json:"phase"`
	Cursor    int       `json:"cursor"`
	ItemsDone int       `json:"items_done"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// New creates a checkpoint for the given phase starting at cursor.
func New(phase Phase, cursor int) *Checkpoint {
	now := time.Now()
	return &Checkpoint{
		Phase:     phase,
		Cursor:    cursor,
		StartedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Store handles durable checkpoint operations for one engine identity.
type Store struct {
	path   string
	phase  Phase
	logger logger.Logger
}

// NewStore creates a checkpoint store for the given phase under dir.
func NewStore(dir string, phase Phase) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	return &Store{
		path:   filepath.Join(dir, fmt.Sprintf("%s.checkpoint.json", phase)),
		phase:  phase,
		logger: logger.GetLogger(),
	}, nil
}

// Load returns the stored checkpoint, or nil when none exists. A missing,
// unreadable or corrupt checkpoint file is treated as absent: corruption is
// logged and the caller starts fresh, never losing data over a bad
// checkpoint.
func (s *Store) Load() *Checkpoint {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WarnWithFields("checkpoint unreadable, starting fresh", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return nil
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		s.logger.WarnWithFields("checkpoint corrupt, starting fresh", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return nil
	}

	if cp.Phase != s.phase {
		s.logger.WarnWithFields("checkpoint phase mismatch, starting fresh", map[string]interface{}{
			"path":     s.path,
			"expected": string(s.phase),
			"found":    string(cp.Phase),
		})
		return nil
	}

	s.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
		"phase":      string(cp.Phase),
		"cursor":     cp.Cursor,
		"items_done": cp.ItemsDone,
		"updated_at": cp.UpdatedAt,
	})

	return &cp
}

// Save writes the checkpoint to disk atomically: the data goes to a
// temporary file which is fsynced and renamed over the previous checkpoint,
// so a crash mid-write never leaves a half-written file behind.
func (s *Store) Save(cp *Checkpoint) error {
	cp.UpdatedAt = time.Now()

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cp); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	s.logger.DebugWithFields("checkpoint saved", map[string]interface{}{
		"phase":      string(cp.Phase),
		"cursor":     cp.Cursor,
		"items_done": cp.ItemsDone,
	})

	return nil
}

// Clear removes the checkpoint file. It is called only after the owning
// engine confirms the run is fully and successfully complete.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	s.logger.InfoWithFields("checkpoint cleared", map[string]interface{}{
		"phase": string(s.phase),
	})
	return nil
}

// Exists checks if a checkpoint file exists.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Path returns the checkpoint file path.
func (s *Store) Path() string {
	return s.path
}
