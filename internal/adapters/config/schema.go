package config

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings represents the structure of the config.yml settings file.
type Settings struct {
	Port          int         `yaml:"PORT"`
	Paths         PathsDTO    `yaml:"PATHS"`
	Compatibility targetList  `yaml:"COMPATIBILITY"`
	Browsers      targetList  `yaml:"BROWSERS"`
	Tailwind      TailwindDTO `yaml:"TAILWIND"`
	Sass          SassDTO     `yaml:"SASS"`
	UnCSS         UnCSSDTO    `yaml:"UNCSS"`
	Images        ImagesDTO   `yaml:"IMAGES"`
}

// PathsDTO represents the PATHS section.
type PathsDTO struct {
	Dist   string   `yaml:"dist"`
	Assets []string `yaml:"assets"`
	Sass   []string `yaml:"sass"`
}

// TailwindDTO represents the TAILWIND section.
type TailwindDTO struct {
	Config string `yaml:"config"`
	Binary string `yaml:"binary"`
}

// SassDTO represents the SASS section.
type SassDTO struct {
	Binary string `yaml:"binary"`
}

// UnCSSDTO represents the UNCSS section.
type UnCSSDTO struct {
	Enabled bool     `yaml:"enabled"`
	Ignore  []string `yaml:"ignore"`
}

// ImagesDTO represents the IMAGES section.
type ImagesDTO struct {
	Quality int `yaml:"quality"`
}

// targetList accepts either a comma separated string or a YAML sequence.
type targetList string

func (t *targetList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*t = targetList(strings.Join(items, ","))
		return nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	*t = targetList(s)
	return nil
}
