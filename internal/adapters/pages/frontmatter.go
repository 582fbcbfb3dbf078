package pages

import (
	"bytes"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var fence = []byte("---")

// splitFrontMatter separates a leading "---" fenced YAML block from the
// template body. Content without a leading fence is returned unchanged.
func splitFrontMatter(content []byte) (map[string]any, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, append(fence, '\n')) {
		return map[string]any{}, content, nil
	}

	rest := normalized[len(fence)+1:]

	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, append(fence, '\n')):
		body = rest[len(fence)+1:]
	case bytes.Equal(rest, fence):
	default:
		end := bytes.Index(rest, []byte("\n---\n"))
		if end < 0 {
			if !bytes.HasSuffix(rest, []byte("\n---")) {
				return nil, nil, zerr.Wrap(zerr.New("unterminated front matter"), domain.ErrFrontMatterInvalid.Error())
			}
			end = len(rest) - len("\n---")
			header = rest[:end]
			break
		}
		header = rest[:end]
		body = rest[end+len("\n---\n"):]
	}

	attrs := map[string]any{}
	if err := yaml.Unmarshal(header, &attrs); err != nil {
		return nil, nil, zerr.Wrap(err, domain.ErrFrontMatterInvalid.Error())
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	return attrs, body, nil
}
