package block

import "strings"

// Format renders a block template. "{}" is replaced with primary and
// "{field}" with fields[field]; a field the measurement doesn't provide
// renders empty. "{{" and "}}" are literal braces, and an unterminated "{"
// is kept as-is.
func Format(template, primary string, fields map[string]string) string {
	var b strings.Builder
	b.Grow(len(template) + len(primary))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				b.WriteString(template[i:])
				return b.String()
			}
			key := strings.TrimSpace(template[i+1 : i+1+end])
			if key == "" {
				b.WriteString(primary)
			} else {
				b.WriteString(fields[key])
			}
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				i++
			}
			b.WriteByte('}')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
