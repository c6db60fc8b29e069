package core

import (
	"fmt"
	"sort"

	"api-collector/internal/common/errors"
	"api-collector/internal/models"
)

// BuildTree turns pipeline step definitions into a validated runtime
// tree: configs decoded once, IDs checked for uniqueness across the
// whole tree, siblings sorted by ascending order.
func BuildTree(definitions []models.ProcessingStep) ([]*Step, error) {
	seen := make(map[string]bool)
	return buildLevel(definitions, seen)
}

func buildLevel(definitions []models.ProcessingStep, seen map[string]bool) ([]*Step, error) {
	steps := make([]*Step, 0, len(definitions))
	orders := make(map[int]string, len(definitions))

	for _, def := range definitions {
		if def.ID == "" {
			return nil, errors.ValidationError("step without an id")
		}
		if seen[def.ID] {
			return nil, errors.ValidationError(fmt.Sprintf("duplicate step id: %s", def.ID))
		}
		seen[def.ID] = true

		if other, ok := orders[def.Order]; ok {
			return nil, errors.ValidationError(fmt.Sprintf(
				"steps %s and %s share order %d", other, def.ID, def.Order))
		}
		orders[def.Order] = def.ID

		config, err := models.DecodeStepConfig(def.Type, def.Config)
		if err != nil {
			return nil, errors.ValidationError(fmt.Sprintf("step %s: %v", def.ID, err))
		}

		children, err := buildLevel(def.Steps, seen)
		if err != nil {
			return nil, err
		}

		steps = append(steps, &Step{
			ID:       def.ID,
			Name:     def.Name,
			Type:     def.Type,
			Order:    def.Order,
			Enabled:  def.Enabled,
			Config:   config,
			Children: children,
		})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})

	return steps, nil
}
