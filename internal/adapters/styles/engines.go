package styles

import (
	"strings"
	"unicode"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// parseEngines turns a comma separated target list such as
// "chrome58,firefox57,safari11.1" into esbuild engine targets.
func parseEngines(targets string) ([]api.Engine, error) {
	var engines []api.Engine
	for raw := range strings.SplitSeq(targets, ",") {
		target := strings.ToLower(strings.TrimSpace(raw))
		if target == "" {
			continue
		}

		split := strings.IndexFunc(target, unicode.IsDigit)
		if split <= 0 {
			return nil, zerr.With(domain.ErrInvalidEngineTarget, "target", raw)
		}

		name, ok := engineNames[strings.TrimSpace(target[:split])]
		if !ok {
			return nil, zerr.With(domain.ErrInvalidEngineTarget, "target", raw)
		}
		engines = append(engines, api.Engine{Name: name, Version: target[split:]})
	}
	return engines, nil
}
