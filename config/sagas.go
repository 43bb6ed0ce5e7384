package config

import (
	"fmt"

	"github.com/sagaline/sagaline/pkg/saga"
)

// ToCatalog compiles one saga declaration into a step catalog.
func (s *SagaConfig) ToCatalog() (*saga.Catalog, error) {
	steps := make([]saga.StepDefinition, 0, len(s.Steps))
	for _, step := range s.Steps {
		steps = append(steps, saga.StepDefinition{
			Name:        step.Name,
			Compensable: step.Compensable,
		})
	}
	catalog, err := saga.NewCatalog(s.Name, steps)
	if err != nil {
		return nil, fmt.Errorf("saga %q: %w", s.Name, err)
	}
	return catalog, nil
}

// BuildCatalogs compiles every declared saga into a catalog, keyed by saga
// name. Duplicate saga names are a configuration error.
func (c *Config) BuildCatalogs() (map[string]*saga.Catalog, error) {
	catalogs := make(map[string]*saga.Catalog, len(c.Sagas))
	for i := range c.Sagas {
		sc := &c.Sagas[i]
		if _, exists := catalogs[sc.Name]; exists {
			return nil, fmt.Errorf("duplicate saga name %q", sc.Name)
		}
		catalog, err := sc.ToCatalog()
		if err != nil {
			return nil, err
		}
		catalogs[sc.Name] = catalog
	}
	return catalogs, nil
}
