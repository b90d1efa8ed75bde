package scoring

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrModelNotFound is returned when a model id is not registered.
var ErrModelNotFound = errors.New("score model not found")

// modelSpec is the file representation of a ScoreModel.
type modelSpec struct {
	ID      string             `koanf:"id"`
	Name    string             `koanf:"name"`
	Weights map[string]float64 `koanf:"weights"`
}

// registryFile is the YAML layout of the models file:
//
//	models:
//	  - id: growth
//	    name: Growth focus
//	    weights: {strategic_alignment: 0.4, technical_fit: 0.3}
//	priorities:
//	  target_organizations: [DOD]
//	  target_categories: [IT Services]
//	  growth_areas: [zero trust]
type registryFile struct {
	Models     []modelSpec `koanf:"models"`
	Priorities Priorities  `koanf:"priorities"`
}

// Registry holds the validated score models and the strategic priorities.
// It is immutable after construction.
type Registry struct {
	models     map[string]*ScoreModel
	priorities Priorities
}

// NewRegistry validates models and indexes them by id. The built-in default
// model is added unless a model with DefaultModelID is supplied.
func NewRegistry(models []*ScoreModel, priorities Priorities) (*Registry, error) {
	r := &Registry{
		models:     make(map[string]*ScoreModel, len(models)+1),
		priorities: priorities,
	}
	for _, m := range models {
		if err := m.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.models[m.ID]; dup {
			return nil, &ConfigError{ModelID: m.ID, Field: "id", Err: errors.New("duplicate model id")}
		}
		r.models[m.ID] = m
	}
	if _, ok := r.models[DefaultModelID]; !ok {
		r.models[DefaultModelID] = DefaultModel()
	}
	return r, nil
}

// LoadRegistry reads models and priorities from a YAML file. An empty path
// yields a registry holding only the default model.
func LoadRegistry(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return NewRegistry(nil, Priorities{})
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load score models file %s: %w", path, err)
	}

	var f registryFile
	if err := k.Unmarshal("", &f); err != nil {
		return nil, fmt.Errorf("failed to parse score models file %s: %w", path, err)
	}

	models := make([]*ScoreModel, 0, len(f.Models))
	for _, spec := range f.Models {
		m, err := NewScoreModel(spec.ID, spec.Name, spec.Weights)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	r, err := NewRegistry(models, f.Priorities)
	if err != nil {
		return nil, err
	}

	logger.Info("loaded score models",
		"path", path,
		"models", r.IDs(),
		"target_organizations", len(f.Priorities.TargetOrganizations),
		"target_categories", len(f.Priorities.TargetCategories),
		"growth_areas", len(f.Priorities.GrowthAreas))
	return r, nil
}

// Model returns the model registered under id. An empty id selects the
// default model.
func (r *Registry) Model(id string) (*ScoreModel, error) {
	if id == "" {
		id = DefaultModelID
	}
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModelNotFound, id)
	}
	return m, nil
}

// Models returns all models ordered by id.
func (r *Registry) Models() []*ScoreModel {
	out := make([]*ScoreModel, 0, len(r.models))
	for _, id := range r.IDs() {
		out = append(out, r.models[id])
	}
	return out
}

// IDs returns the registered model ids in ascending order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.models))
	for id := range r.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Priorities returns the strategic priorities.
func (r *Registry) Priorities() Priorities {
	return r.priorities
}
