// Package aggregate drives checkpointed full-range scans: windows of heights
// are fetched with bounded concurrency, folded through a block auditor into a
// running 128-bit total, and progress is persisted so a killed run resumes
// without double-counting or gaps.
package aggregate

import (
	"context"
	"time"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// HeaderSource fetches headers for a set of heights.
	HeaderSource interface {
		HeadersByNumbers(ctx context.Context, heights []uint64) (map[uint64]model.Header, error)
	}

	// BlockAuditor measures one block's contribution to the aggregate. It must
	// be safe for concurrent use and order-independent.
	BlockAuditor interface {
		Audit(height uint64, header, parent model.Header) (uint64, error)
	}

	// Store persists resumable progress.
	Store interface {
		Load() (Checkpoint, bool, error)
		Save(cp Checkpoint) error
	}

	// Metrics records processed windows.
	Metrics interface {
		ObserveWindow(err error, heights int, started time.Time)
	}
)
