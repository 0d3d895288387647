package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Provider loads a parameter set from some backing store.
type Provider interface {
	LoadParams() (Params, error)
}

// YAMLProvider loads parameters from a YAML file. Values missing from the
// file keep their defaults; the loaded set is validated before use.
type YAMLProvider struct {
	path string
}

// NewYAMLProvider creates a YAML file-backed parameter provider.
func NewYAMLProvider(path string) *YAMLProvider {
	return &YAMLProvider{path: path}
}

// LoadParams reads and validates the parameter file.
func (y *YAMLProvider) LoadParams() (Params, error) {
	params := DefaultParams()

	data, err := os.ReadFile(y.path)
	if err != nil {
		return Params{}, fmt.Errorf("reading parameter file: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, &params); err != nil {
		return Params{}, fmt.Errorf("parsing parameter file %s: %w", y.path, err)
	}
	if err := params.Validate(); err != nil {
		return Params{}, fmt.Errorf("invalid parameters in %s: %w", y.path, err)
	}
	return params, nil
}

// StaticProvider wraps an in-memory parameter set, mostly for tests and for
// callers that build parameters programmatically.
type StaticProvider struct {
	params Params
}

// NewStaticProvider creates a provider returning a snapshot of params.
func NewStaticProvider(params Params) *StaticProvider {
	return &StaticProvider{params: params.Clone()}
}

// LoadParams returns a copy of the wrapped parameters after validation.
func (s *StaticProvider) LoadParams() (Params, error) {
	if err := s.params.Validate(); err != nil {
		return Params{}, err
	}
	return s.params.Clone(), nil
}
