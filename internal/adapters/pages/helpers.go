package pages

import (
	"bytes"
	"fmt"
	"html"
	"maps"
	"strconv"
	"strings"

	"github.com/aymerick/raymond"
	"github.com/yuin/goldmark"
)

// sharedHelpers returns the built-in helpers that do not depend on the page being rendered.
func sharedHelpers(md goldmark.Markdown) map[string]any {
	return map[string]any{
		// {{#ifequal a b}}...{{else}}...{{/ifequal}}
		"ifequal": func(a, b any, options *raymond.Options) raymond.SafeString {
			if raymond.Str(a) == raymond.Str(b) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
		// {{#markdown}}...{{/markdown}}
		"markdown": func(options *raymond.Options) raymond.SafeString {
			var buf bytes.Buffer
			if err := md.Convert([]byte(dedent(options.Fn())), &buf); err != nil {
				return raymond.SafeString(html.EscapeString(options.Fn()))
			}
			return raymond.SafeString(buf.String())
		},
		// {{#repeat 3}}...{{/repeat}}
		"repeat": func(count any, options *raymond.Options) raymond.SafeString {
			n, err := strconv.Atoi(raymond.Str(count))
			if err != nil || n < 0 {
				return ""
			}
			var sb strings.Builder
			for range n {
				sb.WriteString(options.Fn())
			}
			return raymond.SafeString(sb.String())
		},
		// {{#code "html"}}...{{/code}}
		"code": func(lang any, options *raymond.Options) raymond.SafeString {
			body := html.EscapeString(strings.Trim(dedent(options.Fn()), "\n"))
			class := ""
			if l := raymond.Str(lang); l != "" {
				class = fmt.Sprintf(` class="language-%s"`, html.EscapeString(l))
			}
			return raymond.SafeString(fmt.Sprintf("<pre><code%s>%s</code></pre>", class, body))
		},
	}
}

// pageHelpers returns the built-in helpers bound to the page named page.
func pageHelpers(page string) map[string]any {
	return map[string]any{
		// {{#ifpage "index,about"}}...{{/ifpage}}
		"ifpage": func(names any, options *raymond.Options) raymond.SafeString {
			if pageIn(page, names) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
		// {{#unlesspage "index"}}...{{/unlesspage}}
		"unlesspage": func(names any, options *raymond.Options) raymond.SafeString {
			if !pageIn(page, names) {
				return raymond.SafeString(options.Fn())
			}
			return raymond.SafeString(options.Inverse())
		},
	}
}

// templateHelper exposes a helper template as a block helper. The hash
// arguments become the template context and the block body is available as
// {{yield}}.
func templateHelper(tpl *raymond.Template) func(options *raymond.Options) raymond.SafeString {
	return func(options *raymond.Options) raymond.SafeString {
		ctx := make(map[string]any, len(options.Hash())+1)
		maps.Copy(ctx, options.Hash())
		ctx["yield"] = raymond.SafeString(options.Fn())

		out, err := tpl.Exec(ctx)
		if err != nil {
			panic(err)
		}
		return raymond.SafeString(out)
	}
}

func isBuiltinHelper(name string) bool {
	switch name {
	case "ifequal", "markdown", "repeat", "code", "ifpage", "unlesspage":
		return true
	default:
		return false
	}
}

func pageIn(page string, names any) bool {
	for name := range strings.SplitSeq(raymond.Str(names), ",") {
		if strings.TrimSpace(name) == page {
			return true
		}
	}
	return false
}

// dedent removes the indentation shared by every non-blank line, so block
// content indented to match the surrounding HTML is not read as code.
func dedent(s string) string {
	lines := strings.Split(s, "\n")

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return s
	}

	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}
