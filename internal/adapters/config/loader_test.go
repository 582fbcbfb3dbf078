package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/config"
	"go.trai.ch/kiln/internal/core/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Success(t *testing.T) {
	path := writeConfig(t, `
PORT: 8000
PATHS:
  dist: "dist"
  assets:
    - "src/assets/**/*"
    - "!src/assets/{img,js,scss}/**/*"
  sass:
    - "node_modules/foundation-sites/scss"
COMPATIBILITY: "ie10"
BROWSERS:
  - chrome90
  - safari14
TAILWIND:
  config: "tw.config.js"
UNCSS:
  enabled: true
  ignore: [".is-active"]
IMAGES:
  quality: 60
`)

	cfg, err := config.NewLoader().Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "dist", cfg.Paths.Dist)
	assert.Equal(t, []string{"src/assets/**/*", "!src/assets/{img,js,scss}/**/*"}, cfg.Paths.Assets)
	assert.Equal(t, []string{"node_modules/foundation-sites/scss"}, cfg.Paths.Sass)
	assert.Equal(t, "ie10", cfg.Compatibility)
	assert.Equal(t, "chrome90,safari14", cfg.Browsers)
	assert.Equal(t, "tw.config.js", cfg.Tailwind.Config)
	assert.Equal(t, domain.DefaultTailwindBinary, cfg.Tailwind.Binary)
	assert.True(t, cfg.UnCSS.Enabled)
	assert.Equal(t, []string{".is-active"}, cfg.UnCSS.Ignore)
	assert.Equal(t, 60, cfg.Images.Quality)
	assert.False(t, cfg.Production)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
PORT: 3000
PATHS:
  dist: "public"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultCompatibility, cfg.Compatibility)
	assert.Equal(t, domain.DefaultBrowsers, cfg.Browsers)
	assert.Equal(t, domain.DefaultTailwindConfig, cfg.Tailwind.Config)
	assert.Equal(t, domain.DefaultTailwindBinary, cfg.Tailwind.Binary)
	assert.Equal(t, domain.DefaultSassBinary, cfg.Sass.Binary)
	assert.Equal(t, domain.DefaultImageQuality, cfg.Images.Quality)
	assert.False(t, cfg.UnCSS.Enabled)
	assert.Empty(t, cfg.Paths.Assets)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), domain.ConfigFileName))
	require.ErrorIs(t, err, domain.ErrConfigReadFailed)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "PORT: [8000\nPATHS: {")

	_, err := config.Load(path)
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "missing port",
			content: "PATHS:\n  dist: dist\n",
			wantMsg: "PORT is required",
		},
		{
			name:    "port out of range",
			content: "PORT: 70000\nPATHS:\n  dist: dist\n",
			wantMsg: "PORT must be between 1 and 65535",
		},
		{
			name:    "missing dist",
			content: "PORT: 8000\nPATHS:\n  assets: [\"src/assets/**/*\"]\n",
			wantMsg: "PATHS.dist is required",
		},
		{
			name:    "bare negation",
			content: "PORT: 8000\nPATHS:\n  dist: dist\n  assets: [\"!\"]\n",
			wantMsg: "empty pattern",
		},
		{
			name:    "image quality out of range",
			content: "PORT: 8000\nPATHS:\n  dist: dist\nIMAGES:\n  quality: 101\n",
			wantMsg: "IMAGES.quality must be in 0..100 (0 = default)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			require.ErrorIs(t, err, domain.ErrConfigInvalid)
			assert.ErrorContains(t, err, tt.wantMsg)
		})
	}
}

func TestLoad_ZeroImageQualityUsesDefault(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "PORT: 8000\nPATHS:\n  dist: dist\nIMAGES:\n  quality: 0\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultImageQuality, cfg.Images.Quality)
}
