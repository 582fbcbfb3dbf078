package styles

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.trai.ch/zerr"
	"golang.org/x/net/html"
)

// usedSelectors collects the class names and ids referenced by every HTML
// file below dir. Class names are prefixed with "." and ids with "#".
func usedSelectors(dir string, ignore []string) (map[string]bool, error) {
	used := make(map[string]bool)
	for _, name := range ignore {
		name = strings.TrimSpace(name)
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "#") {
			used[name] = true
		} else if name != "" {
			used["."+name] = true
		}
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".html" {
			return nil
		}
		return collectSelectors(path, used)
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, zerr.Wrap(err, "failed to scan rendered pages")
	}
	return used, nil
}

func collectSelectors(path string, used map[string]bool) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	doc, err := html.Parse(f)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to parse page"), "page", path)
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, attr := range n.Attr {
				switch attr.Key {
				case "class":
					for _, class := range strings.Fields(attr.Val) {
						used["."+class] = true
					}
				case "id":
					if id := strings.TrimSpace(attr.Val); id != "" {
						used["#"+id] = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nil
}

// block is an open rule or at-rule while the stylesheet is rewritten.
type block struct {
	head string
	body strings.Builder
	// keep emits the block even when nothing inside it survived.
	keep    bool
	content bool
	drop    bool
}

func (b *block) write(s string) {
	b.body.WriteString(s)
	b.content = true
}

// purgeUnused drops every selector that references a class or id missing
// from used, every rule left without selectors and every grouping at-rule
// left empty. Comments are removed.
func purgeUnused(stylesheet string, used map[string]bool) (string, error) {
	p := css.NewParser(parse.NewInputString(stylesheet), false)
	stack := []*block{{keep: true}}
	var kept []string

	for {
		gt, _, data := p.Next()
		top := stack[len(stack)-1]

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return stack[0].body.String(), nil
			}
			return "", zerr.Wrap(p.Err(), "failed to parse stylesheet")
		case css.AtRuleGrammar:
			top.write(atRuleHead(data, p.Values()) + ";\n")
		case css.BeginAtRuleGrammar:
			stack = append(stack, &block{
				head: atRuleHead(data, p.Values()),
				keep: !isGroupingRule(string(data)),
				drop: top.drop,
			})
		case css.QualifiedRuleGrammar, css.BeginRulesetGrammar:
			if selectorUsed(p.Values(), used) {
				kept = append(kept, strings.TrimSpace(tokensString(p.Values())))
			}
			if gt == css.BeginRulesetGrammar {
				stack = append(stack, &block{
					head: strings.Join(kept, ",\n"),
					keep: true,
					drop: top.drop || len(kept) == 0,
				})
				kept = nil
			}
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			top.write(" " + string(data) + ": " + strings.TrimSpace(tokensString(p.Values())) + ";")
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			if len(stack) == 1 {
				continue
			}
			stack = stack[:len(stack)-1]
			if !top.drop && (top.keep || top.content) {
				stack[len(stack)-1].write(top.head + " {" + top.body.String() + " }\n")
			}
		}
	}
}

func atRuleHead(name []byte, values []css.Token) string {
	if prelude := strings.TrimSpace(tokensString(values)); prelude != "" {
		return string(name) + " " + prelude
	}
	return string(name)
}

func tokensString(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.Write(t.Data)
	}
	return sb.String()
}

func isGroupingRule(name string) bool {
	switch strings.ToLower(name) {
	case "@media", "@supports", "@layer", "@container", "@document":
		return true
	}
	return false
}

// selectorUsed reports whether every class and id in the selector is used.
// Attribute selectors and the arguments of functional pseudo-classes such
// as :not() are not considered.
func selectorUsed(tokens []css.Token, used map[string]bool) bool {
	depth := 0
	for i, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.HashToken:
			if depth == 0 && !used[unescape(string(t.Data))] {
				return false
			}
		case css.DelimToken:
			if depth > 0 || string(t.Data) != "." || i+1 >= len(tokens) || tokens[i+1].TokenType != css.IdentToken {
				continue
			}
			if !used["."+unescape(string(tokens[i+1].Data))] {
				return false
			}
		}
	}
	return true
}

func unescape(name string) string {
	return strings.ReplaceAll(name, `\`, "")
}
