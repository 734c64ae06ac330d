// Persisted filter selection reused between runs
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"edge-detection/internal/convolution"
	"edge-detection/internal/kernels"
)

// ErrInvalidSettings is returned when a settings record names an unknown kernel or mode.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings is the filter selection remembered between runs
type Settings struct {
	Kernel  string                `yaml:"kernel"`
	Display convolution.ColorMode `yaml:"display"`
}

// Default returns the selection used when nothing has been saved yet
func Default() Settings {
	return Settings{
		Kernel:  kernels.Default(),
		Display: convolution.Grayscale,
	}
}

// Validate checks the kernel name against the catalog and the display mode
func (s Settings) Validate() error {
	if !kernels.IsValid(s.Kernel) {
		return fmt.Errorf("%w: kernel %q (want one of %v)", ErrInvalidSettings, s.Kernel, kernels.Names())
	}
	if !s.Display.IsValid() {
		return fmt.Errorf("%w: display %d", ErrInvalidSettings, int(s.Display))
	}
	return nil
}

// Store reads and writes Settings as YAML at Path
type Store struct {
	Path string
}

// NewStore creates a store backed by path; an empty path selects DefaultPath
func NewStore(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{Path: path}, nil
}

// DefaultPath returns the settings file under the user's config directory
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "edge-detection", "settings.yaml"), nil
}

// Load returns the saved settings, or Default when nothing has been saved
func (st *Store) Load() (Settings, error) {
	data, err := os.ReadFile(st.Path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("reading settings: %w", err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %s: %v", ErrInvalidSettings, st.Path, err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Save validates s and writes it, creating parent directories as needed
func (st *Store) Save(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(st.Path), 0o755); err != nil {
		return fmt.Errorf("creating settings dir: %w", err)
	}
	if err := os.WriteFile(st.Path, data, 0o644); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
