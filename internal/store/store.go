// Package store persists the audit log of batch runs. It records counts and
// status only; indicator values are never stored.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/indicator-cli/internal/config"
	"github.com/sells-group/indicator-cli/internal/model"
)

// Run origins.
const (
	OriginCLI = "cli"
	OriginAPI = "api"
)

const defaultListLimit = 100

// ErrRunNotFound is returned when a run ID does not exist.
var ErrRunNotFound = eris.New("store: run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status       model.RunStatus `json:"status,omitempty"`
	Origin       string          `json:"origin,omitempty"`
	CreatedAfter time.Time       `json:"created_after,omitempty"`
	Limit        int             `json:"limit,omitempty"`
	Offset       int             `json:"offset,omitempty"`
}

// RunOutcome is the final state written when a run ends.
type RunOutcome struct {
	Status    model.RunStatus
	Succeeded int
	Failed    int
	Error     string
}

// Store defines the run log operations.
type Store interface {
	CreateRun(ctx context.Context, origin string, indicators int) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, out RunOutcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open creates and migrates the store selected by cfg.Driver. The "none"
// driver returns a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "", "sqlite":
		s, err = NewSQLite(cfg.SQLitePath)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
