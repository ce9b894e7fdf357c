package block

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Default semantic colors.
const (
	DefaultGood     = "#00FF00"
	DefaultDegraded = "#FFFF00"
	DefaultBad      = "#FF0000"
)

// Semantic color names a capability or config entry may use instead of a hex value.
const (
	ColorGood     = "good"
	ColorDegraded = "degraded"
	ColorBad      = "bad"
)

// Palette maps the semantic colors to concrete values.
type Palette struct {
	Good     string
	Degraded string
	Bad      string
}

// DefaultPalette returns green/yellow/red.
func DefaultPalette() Palette {
	return Palette{Good: DefaultGood, Degraded: DefaultDegraded, Bad: DefaultBad}
}

// Resolve turns a semantic name, a CSS color name, or a hex value into
// "#RRGGBB". Empty input resolves to empty (no color).
func (p Palette) Resolve(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case ColorGood:
		return NormalizeColor(p.Good)
	case ColorDegraded:
		return NormalizeColor(p.Degraded)
	case ColorBad:
		return NormalizeColor(p.Bad)
	}
	return NormalizeColor(s)
}

// NormalizeColor accepts "#rgb", "#rrggbb" (with or without the leading '#')
// or a CSS color name and returns upper-case "#RRGGBB".
func NormalizeColor(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}

	hex := s
	if !strings.HasPrefix(hex, "#") && isHexDigits(hex) && (len(hex) == 3 || len(hex) == 6) {
		hex = "#" + hex
	}
	if strings.HasPrefix(hex, "#") {
		if len(hex) != 4 && len(hex) != 7 {
			return "", fmt.Errorf("invalid hex color %q", s)
		}
		c, err := colorful.Hex(strings.ToLower(hex))
		if err != nil {
			return "", fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		return strings.ToUpper(c.Hex()), nil
	}

	name := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	rgba, ok := colornames.Map[name]
	if !ok {
		return "", fmt.Errorf("unknown color name %q", s)
	}
	return fmt.Sprintf("#%02X%02X%02X", rgba.R, rgba.G, rgba.B), nil
}

func isHexColor(s string) bool {
	return len(s) == 7 && s[0] == '#' && isHexDigits(s[1:])
}

func isHexDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
