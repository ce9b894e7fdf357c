package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// maxSuggestDistance is the largest edit distance still offered as a
// "did you mean" for an unknown kind.
const maxSuggestDistance = 3

// KindSet reports which capability kinds exist.
type KindSet interface {
	Has(kind string) bool
	Kinds() []string
}

// ValidateGeneral checks the general settings after defaults and overrides.
func ValidateGeneral(g General) error {
	if g.Interval < MinInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("interval %s is too short", g.Interval),
			fmt.Sprintf("Use at least %s.", MinInterval))
	}
	if g.TaskTimeout < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("task_timeout %s is negative", g.TaskTimeout),
			"Use 0 to disable the timeout, or a positive duration.")
	}
	switch g.Output {
	case OutputI3bar, OutputTerm:
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("unknown output mode %q", g.Output),
			fmt.Sprintf("Use '%s' or '%s'.", OutputI3bar, OutputTerm))
	}
	for name, value := range map[string]string{
		block.ColorGood:     g.Colors.Good,
		block.ColorDegraded: g.Colors.Degraded,
		block.ColorBad:      g.Colors.Bad,
	} {
		if _, err := block.NormalizeColor(value); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("colors.%s is not a color: %q", name, value),
				"Use a hex value like #00FF00 or a name like 'green'.")
		}
	}
	return nil
}

// Palette returns the resolved semantic colors. Call after ValidateGeneral.
func (g General) Palette() block.Palette {
	p := block.DefaultPalette()
	if c, err := block.NormalizeColor(g.Colors.Good); err == nil && c != "" {
		p.Good = c
	}
	if c, err := block.NormalizeColor(g.Colors.Degraded); err == nil && c != "" {
		p.Degraded = c
	}
	if c, err := block.NormalizeColor(g.Colors.Bad); err == nil && c != "" {
		p.Bad = c
	}
	return p
}

// Validate drops entries whose kind is unknown or whose color can't be
// resolved, and returns one problem per dropped entry. The returned
// snapshot keeps the original order.
func Validate(s Snapshot, kinds KindSet, palette block.Palette) (Snapshot, []error) {
	var out Snapshot
	var problems []error

	for _, e := range s.Entries {
		if !kinds.Has(e.Kind) {
			problems = append(problems, unknownKind(e, kinds))
			continue
		}
		if _, err := palette.Resolve(e.Color); err != nil {
			problems = append(problems, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("'%s' has an invalid color: %q", e.Instance, e.Color),
				"Use good, degraded, bad, a hex value, or a color name."))
			continue
		}
		out.Entries = append(out.Entries, e)
	}
	return out, problems
}

func unknownKind(e Entry, kinds KindSet) error {
	suggestion := "Known functions: " + joinKinds(kinds.Kinds())
	if best := closestKind(e.Kind, kinds.Kinds()); best != "" {
		suggestion = fmt.Sprintf("Did you mean '%s'?", best)
	}
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("'%s' uses unknown function '%s'", e.Instance, e.Kind),
		suggestion)
}

func closestKind(kind string, known []string) string {
	best, bestDist := "", maxSuggestDistance+1
	for _, k := range known {
		if d := levenshtein.ComputeDistance(kind, k); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

func joinKinds(kinds []string) string {
	sorted := append([]string(nil), kinds...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
