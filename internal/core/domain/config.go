package domain

import "path/filepath"

const (
	// DefaultCompatibility is the minifier target used when COMPATIBILITY is not set.
	DefaultCompatibility = "ie9"

	// DefaultBrowsers is the vendor-prefix target list used when BROWSERS is not set.
	DefaultBrowsers = "chrome58,firefox57,safari11,edge16"

	// DefaultTailwindConfig is the utility framework config consulted when TAILWIND.config is not set.
	DefaultTailwindConfig = "tailwind.config.js"

	// DefaultTailwindBinary is the utility framework CLI used when TAILWIND.binary is not set.
	DefaultTailwindBinary = "tailwindcss"

	// DefaultSassBinary is the Sass compiler used when SASS.binary is not set.
	DefaultSassBinary = "sass"

	// DefaultImageQuality is the JPEG quality used for production builds.
	DefaultImageQuality = 75
)

// Config is the immutable build configuration, loaded once per process.
type Config struct {
	Port          int
	Paths         Paths
	Compatibility string
	Browsers      string
	Tailwind      Tailwind
	Sass          Sass
	UnCSS         UnCSS
	Images        Images

	// Production selects the production pipeline. It comes from the
	// command line, never from the settings file.
	Production bool
}

// Paths holds the configurable locations of the build.
type Paths struct {
	// Dist is the output directory.
	Dist string
	// Assets is the list of globs copied into Dist/assets. A leading "!" excludes.
	Assets []string
	// Sass is the list of include search paths for the stylesheet compiler.
	Sass []string
}

// Tailwind configures the utility-class expansion step.
type Tailwind struct {
	Config string
	Binary string
}

// Sass configures the stylesheet compiler.
type Sass struct {
	Binary string
}

// UnCSS configures unused-style removal in production builds.
type UnCSS struct {
	Enabled bool
	// Ignore lists class names that are always kept.
	Ignore []string
}

// Images configures production image recompression.
type Images struct {
	Quality int
}

// WithProduction returns a copy of c with the build mode set.
func (c Config) WithProduction(production bool) *Config {
	c.Production = production
	return &c
}

// DistDir resolves the output directory against the project root.
func (c *Config) DistDir(root string) string {
	if filepath.IsAbs(c.Paths.Dist) {
		return filepath.Clean(c.Paths.Dist)
	}
	return filepath.Join(root, c.Paths.Dist)
}
