package prompt

import (
	"fmt"
	"strings"
)

// Format substitutes {name} placeholders in tmpl with values from vars.
// "{{" and "}}" produce literal braces. A placeholder without a value or an
// unbalanced brace is an error, so a broken template fails before any judge
// call is made.
func Format(tmpl string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unmatched '{' at offset %d", i)
			}
			name := tmpl[i+1 : i+1+end]
			if name == "" || strings.ContainsAny(name, "{ \t\n") {
				return "", fmt.Errorf("invalid placeholder %q at offset %d", name, i)
			}
			v, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("no value for placeholder {%s}", name)
			}
			b.WriteString(v)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// Placeholders lists the distinct placeholder names in tmpl in order of
// first appearance. Escaped braces are skipped; malformed input yields the
// names found before the first error.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '{' {
			continue
		}
		if i+1 < len(tmpl) && tmpl[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(tmpl[i+1:], '}')
		if end < 0 {
			break
		}
		name := tmpl[i+1 : i+1+end]
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		i += end + 1
	}
	return names
}
