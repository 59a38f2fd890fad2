package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// NumModes is the number of step strategies a world can select from.
const NumModes = 4

var ErrInvalidSettings = errors.New("invalid settings")

// Settings are the tunables of a world. Fields missing from a YAML file keep
// their Default() value.
type Settings struct {
	// Mode is the step strategy index: 0 direct, 1 pose first, 2 binary backoff, 3 principal axis.
	Mode           int  `yaml:"mode"`
	CollisionCheck bool `yaml:"collision_check"`
	PhysicsSprings bool `yaml:"physics_springs"`

	CollisionForce    float64 `yaml:"collision_force"`
	BackoffIterations int     `yaml:"backoff_iterations"`

	DefaultInverseMass   float64 `yaml:"default_inverse_mass"`
	DefaultInverseMoment float64 `yaml:"default_inverse_moment"`

	Workers      int     `yaml:"workers"`
	GridCellSize float64 `yaml:"grid_cell_size,omitempty"`
	GridCells    int     `yaml:"grid_cells,omitempty"`
}

func Default() Settings {
	return Settings{
		Mode:                 1,
		CollisionCheck:       true,
		PhysicsSprings:       true,
		CollisionForce:       5,
		BackoffIterations:    10,
		DefaultInverseMass:   1,
		DefaultInverseMoment: 1.0 / 25000.0,
		Workers:              1,
	}
}

func (s Settings) Validate() error {
	switch {
	case s.Mode < 0 || s.Mode >= NumModes:
		return fmt.Errorf("%w: mode %d out of range [0, %d)", ErrInvalidSettings, s.Mode, NumModes)
	case s.CollisionForce < 0:
		return fmt.Errorf("%w: negative collision_force %v", ErrInvalidSettings, s.CollisionForce)
	case s.BackoffIterations < 1:
		return fmt.Errorf("%w: backoff_iterations must be at least 1, got %d", ErrInvalidSettings, s.BackoffIterations)
	case s.DefaultInverseMass < 0 || s.DefaultInverseMoment < 0:
		return fmt.Errorf("%w: negative default mass properties", ErrInvalidSettings)
	case s.Workers < 0:
		return fmt.Errorf("%w: negative workers %d", ErrInvalidSettings, s.Workers)
	case s.GridCellSize < 0 || s.GridCells < 0:
		return fmt.Errorf("%w: negative grid dimensions", ErrInvalidSettings)
	}
	return nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default(), fmt.Errorf("parse settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Default(), err
	}
	return s, nil
}

// Load reads settings from path. A missing file gives Default() and no error.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data)
}

// Save writes s to path, creating the parent directory if needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
