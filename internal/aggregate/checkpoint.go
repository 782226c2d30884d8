package aggregate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/holiman/uint256"
)

// Checkpoint is the resumable unit of work: the next height to process and
// the sum accumulated so far for the range ending at EndHeight.
type Checkpoint struct {
	NextHeight    uint64
	CumulativeSum *uint256.Int
	EndHeight     uint64
	UpdatedAt     time.Time
}

// checkpointJSON is the persisted form. Integers are string-encoded so the
// 128-bit sum survives JSON numeric precision.
type checkpointJSON struct {
	NextHeight    string    `json:"next_height"`
	CumulativeSum string    `json:"cumulative_sum"`
	EndHeight     string    `json:"end_height"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// MarshalJSON implements json.Marshaler.
func (c Checkpoint) MarshalJSON() ([]byte, error) {
	sum := c.CumulativeSum
	if sum == nil {
		sum = uint256.NewInt(0)
	}
	return json.Marshal(checkpointJSON{
		NextHeight:    strconv.FormatUint(c.NextHeight, 10),
		CumulativeSum: sum.Dec(),
		EndHeight:     strconv.FormatUint(c.EndHeight, 10),
		UpdatedAt:     c.UpdatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Checkpoint) UnmarshalJSON(data []byte) error {
	var raw checkpointJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, err := strconv.ParseUint(raw.NextHeight, 10, 64)
	if err != nil {
		return fmt.Errorf("next_height: %w", err)
	}
	end, err := strconv.ParseUint(raw.EndHeight, 10, 64)
	if err != nil {
		return fmt.Errorf("end_height: %w", err)
	}
	sum, err := uint256.FromDecimal(raw.CumulativeSum)
	if err != nil {
		return fmt.Errorf("cumulative_sum: %w", err)
	}
	*c = Checkpoint{
		NextHeight:    next,
		CumulativeSum: sum,
		EndHeight:     end,
		UpdatedAt:     raw.UpdatedAt,
	}
	return nil
}

// FileStore persists checkpoints as a JSON file, written atomically via a
// temporary file and rename.
type FileStore struct {
	path string
}

// NewFileStore builds a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the checkpoint. A missing file is not an error.
func (s *FileStore) Load() (Checkpoint, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(b, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint %s: %w", s.path, err)
	}
	return cp, true, nil
}

// Save writes the checkpoint durably. A crash mid-save leaves the previous
// file intact.
func (s *FileStore) Save(cp Checkpoint) error {
	b, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename checkpoint %s: %w", s.path, err)
	}
	return nil
}
