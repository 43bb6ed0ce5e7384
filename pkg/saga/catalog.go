// Package saga implements the deterministic saga orchestration core: an
// immutable step catalog, the command/event vocabulary derived from it, and a
// pure state machine that advances one saga instance per applied command.
package saga

import "fmt"

// StepDefinition describes one sub-transaction in a saga. Steps execute in
// declaration order. Compensable controls whether the backward walk stops at
// this step or skips over it on failure.
type StepDefinition struct {
	Name        string `json:"name"`
	Compensable bool   `json:"compensable"`
}

// Catalog is the ordered, immutable step catalog for one saga type. It is
// built once from configuration and shared by every instance of that type.
type Catalog struct {
	name     string
	steps    []StepDefinition
	index    map[string]int
	commands map[string]commandKey
}

// NewCatalog builds a catalog from an ordered step definition list.
func NewCatalog(name string, defs []StepDefinition) (*Catalog, error) {
	if name == "" {
		return nil, fmt.Errorf("saga: catalog name cannot be empty")
	}
	if len(defs) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		name:  name,
		steps: make([]StepDefinition, len(defs)),
		index: make(map[string]int, len(defs)),
	}
	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("saga: step at position %d has empty name", i)
		}
		if _, exists := c.index[def.Name]; exists {
			return nil, &DuplicateStepNameError{Name: def.Name}
		}
		c.steps[i] = def
		c.index[def.Name] = i
	}
	c.commands = buildCommandIndex(c.steps)

	return c, nil
}

// Name returns the saga type name.
func (c *Catalog) Name() string {
	return c.name
}

// Len returns the number of steps.
func (c *Catalog) Len() int {
	return len(c.steps)
}

// Steps returns a copy of the ordered step definitions.
func (c *Catalog) Steps() []StepDefinition {
	steps := make([]StepDefinition, len(c.steps))
	copy(steps, c.steps)
	return steps
}

// First returns the first step of the saga.
func (c *Catalog) First() StepDefinition {
	return c.steps[0]
}

// At returns the step definition at the given position.
func (c *Catalog) At(pos int) (StepDefinition, bool) {
	if pos < 0 || pos >= len(c.steps) {
		return StepDefinition{}, false
	}
	return c.steps[pos], true
}

// Next returns the step following pos, or false when pos is the last step.
func (c *Catalog) Next(pos int) (StepDefinition, bool) {
	return c.At(pos + 1)
}

// Position returns the position of the named step.
func (c *Catalog) Position(name string) (int, bool) {
	pos, ok := c.index[name]
	return pos, ok
}
