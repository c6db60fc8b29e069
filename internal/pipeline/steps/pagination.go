package steps

import (
	"context"
	"fmt"
	"strconv"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
	"api-collector/internal/pipeline/core"
	"api-collector/internal/pipeline/fieldpath"
	"api-collector/internal/pipeline/resolver"
)

const (
	defaultPageSize = 100
	defaultMaxPages = 100
)

func init() {
	Register(&PaginationExecutor{})
}

// PaginationExecutor repeats the pipeline's function call, varying the
// page parameters per strategy, and outputs the aggregated item list.
type PaginationExecutor struct{}

func (e *PaginationExecutor) Type() models.StepType {
	return models.StepTypePagination
}

func (e *PaginationExecutor) Execute(ctx context.Context, run *core.Run, step *core.Step, input interface{}) (interface{}, error) {
	cfg := step.Config.Pagination

	target, err := targetFromContext(run.Context)
	if err != nil {
		return nil, err
	}

	switch cfg.Strategy {
	case models.PaginationStrategyOffset:
		return e.fetchOffset(ctx, target, cfg)
	case models.PaginationStrategyCursor:
		return e.fetchCursor(ctx, target, cfg)
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown pagination strategy: %s", cfg.Strategy))
	}
}

func (e *PaginationExecutor) fetchOffset(ctx context.Context, target *callTarget, cfg *models.PaginationConfig) (interface{}, error) {
	offsetParam := defaulted(cfg.OffsetParam, "offset")
	limitParam := defaulted(cfg.LimitParam, "limit")
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var items []interface{}
	offset := 0

	for page := 0; page < maxPages(cfg); page++ {
		params := target.params.Clone()
		params.Query[offsetParam] = strconv.Itoa(offset)
		params.Query[limitParam] = strconv.Itoa(pageSize)

		pageItems, _, err := e.fetchPage(ctx, target, cfg, params)
		if err != nil {
			return nil, err
		}

		items = append(items, pageItems...)
		if len(pageItems) < pageSize {
			break
		}
		offset += pageSize
	}

	return items, nil
}

func (e *PaginationExecutor) fetchCursor(ctx context.Context, target *callTarget, cfg *models.PaginationConfig) (interface{}, error) {
	cursorParam := defaulted(cfg.CursorParam, "cursor")
	if cfg.CursorPath == "" {
		return nil, errors.ValidationError("cursor pagination requires cursor_path")
	}

	var items []interface{}
	cursor := ""

	for page := 0; page < maxPages(cfg); page++ {
		params := target.params.Clone()
		if cursor != "" {
			params.Query[cursorParam] = cursor
		}

		pageItems, payload, err := e.fetchPage(ctx, target, cfg, params)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)

		next, ok := fieldpath.Get(payload, cfg.CursorPath)
		if !ok || next == nil {
			break
		}
		nextCursor := fmt.Sprint(next)
		if nextCursor == "" || nextCursor == cursor {
			break
		}
		cursor = nextCursor
	}

	return items, nil
}

// fetchPage performs one page request and extracts its item list
func (e *PaginationExecutor) fetchPage(ctx context.Context, target *callTarget, cfg *models.PaginationConfig, params *resolver.Resolved) ([]interface{}, interface{}, error) {
	payload, err := performCall(ctx, target, params, "")
	if err != nil {
		return nil, nil, err
	}

	container := payload
	if cfg.ItemsPath != "" {
		value, ok := fieldpath.Get(payload, cfg.ItemsPath)
		if !ok {
			return nil, nil, errors.ValidationError(fmt.Sprintf("items path %s not found in page response", cfg.ItemsPath))
		}
		container = value
	}

	items, ok := container.([]interface{})
	if !ok {
		return nil, nil, errors.ValidationError("paginated response did not yield an item list")
	}

	return items, payload, nil
}

func maxPages(cfg *models.PaginationConfig) int {
	if cfg.MaxPages > 0 {
		return cfg.MaxPages
	}
	return defaultMaxPages
}

func defaulted(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
