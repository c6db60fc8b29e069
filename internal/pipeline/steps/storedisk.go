package steps

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"api-collector/internal/common/errors"
	"api-collector/internal/common/logging"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
)

var (
	diskMu      sync.RWMutex
	diskBaseDir = "data"
)

// SetDiskBaseDir sets the directory StoreDisk steps write under when
// their config does not name one.
func SetDiskBaseDir(dir string) {
	diskMu.Lock()
	defer diskMu.Unlock()
	diskBaseDir = dir
}

func init() {
	Register(&StoreDiskExecutor{})
}

// StoreDiskExecutor writes the current payload to a JSON file with a
// generated name and passes the payload through unchanged.
type StoreDiskExecutor struct{}

func (e *StoreDiskExecutor) Type() models.StepType {
	return models.StepTypeStoreDisk
}

func (e *StoreDiskExecutor) Execute(_ context.Context, _ *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.StoreDisk

	dir := cfg.Directory
	if dir == "" {
		diskMu.RLock()
		dir = diskBaseDir
		diskMu.RUnlock()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.InternalError("failed to create output directory", err)
	}

	payload, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return nil, errors.InternalError("failed to encode payload", err)
	}

	path := filepath.Join(dir, uuid.New().String()+".json")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, errors.InternalError("failed to write payload file", err)
	}

	logging.Debug("payload written to disk",
		logging.String("step_id", step.ID),
		logging.String("path", path),
	)

	return input, nil
}
