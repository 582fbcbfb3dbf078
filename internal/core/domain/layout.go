package domain

import "path/filepath"

const (
	// ConfigFileName is the name of the settings file read from the working directory.
	ConfigFileName = "config.yml"

	// SourceDir is the root of every source tree.
	SourceDir = "src"

	// AssetsDirName is the directory, under the output directory, that copied assets land in.
	AssetsDirName = "assets"

	// DefaultLayout is the layout used by pages that do not name one.
	DefaultLayout = "default"

	// BodyPartial is the partial name the page body is registered under.
	BodyPartial = "body"

	// DirPerm is the default permission for directories (rwxr-xr-x).
	DirPerm = 0o755

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// Fixed source locations, relative to the project root.
var (
	PagesDir     = filepath.Join(SourceDir, "pages")
	LayoutsDir   = filepath.Join(SourceDir, "layouts")
	PartialsDir  = filepath.Join(SourceDir, "partials")
	DataDir      = filepath.Join(SourceDir, "data")
	HelpersDir   = filepath.Join(SourceDir, "helpers")
	ThemeDir     = filepath.Join(SourceDir, "assets", "theme")
	StyleEntry   = filepath.Join(ThemeDir, "app.scss")
	ImagesSrcDir = filepath.Join(SourceDir, "assets", "img")
)

// StylesheetOutput returns the compiled stylesheet path inside dist.
func StylesheetOutput(dist string) string {
	return filepath.Join(dist, AssetsDirName, "theme", "app.css")
}

// ImagesOutput returns the image output directory inside dist.
func ImagesOutput(dist string) string {
	return filepath.Join(dist, AssetsDirName, "img")
}

// AssetsOutput returns the directory copied assets are written to.
func AssetsOutput(dist string) string {
	return filepath.Join(dist, AssetsDirName)
}
