// Package config provides the settings file loader for kiln.
package config

import (
	"errors"
	"os"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const maxPort = 65535

// FileConfigLoader implements ports.ConfigLoader using a YAML file.
type FileConfigLoader struct{}

// NewLoader creates a new FileConfigLoader.
func NewLoader() *FileConfigLoader {
	return &FileConfigLoader{}
}

// Load reads the settings file at path and returns the validated configuration.
func (l *FileConfigLoader) Load(path string) (*domain.Config, error) {
	return Load(path)
}

// Load reads a settings file from the given path, applies defaults and validates it.
func Load(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, errors.Join(domain.ErrConfigReadFailed, zerr.With(err, "path", path))
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, errors.Join(domain.ErrConfigParseFailed, zerr.With(err, "path", path))
	}

	if err := validate(&settings); err != nil {
		return nil, errors.Join(domain.ErrConfigInvalid, zerr.With(err, "path", path))
	}

	return toDomain(&settings), nil
}

func validate(s *Settings) error {
	if s.Port == 0 {
		return zerr.New("PORT is required")
	}
	if s.Port < 0 || s.Port > maxPort {
		return zerr.With(zerr.New("PORT must be between 1 and 65535"), "port", s.Port)
	}
	if strings.TrimSpace(s.Paths.Dist) == "" {
		return zerr.New("PATHS.dist is required")
	}
	for _, pattern := range s.Paths.Assets {
		if strings.TrimPrefix(pattern, "!") == "" {
			return zerr.New("PATHS.assets contains an empty pattern")
		}
	}
	if s.Images.Quality < 0 || s.Images.Quality > 100 {
		return zerr.With(zerr.New("IMAGES.quality must be in 0..100 (0 = default)"), "quality", s.Images.Quality)
	}
	return nil
}

func toDomain(s *Settings) *domain.Config {
	cfg := &domain.Config{
		Port: s.Port,
		Paths: domain.Paths{
			Dist:   s.Paths.Dist,
			Assets: s.Paths.Assets,
			Sass:   s.Paths.Sass,
		},
		Compatibility: withDefault(string(s.Compatibility), domain.DefaultCompatibility),
		Browsers:      withDefault(string(s.Browsers), domain.DefaultBrowsers),
		Tailwind: domain.Tailwind{
			Config: withDefault(s.Tailwind.Config, domain.DefaultTailwindConfig),
			Binary: withDefault(s.Tailwind.Binary, domain.DefaultTailwindBinary),
		},
		Sass: domain.Sass{
			Binary: withDefault(s.Sass.Binary, domain.DefaultSassBinary),
		},
		UnCSS: domain.UnCSS{
			Enabled: s.UnCSS.Enabled,
			Ignore:  s.UnCSS.Ignore,
		},
		Images: domain.Images{
			Quality: s.Images.Quality,
		},
	}

	if cfg.Images.Quality == 0 {
		cfg.Images.Quality = domain.DefaultImageQuality
	}

	return cfg
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
