package capability

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// DefaultMixerControl is the ALSA control read when none is configured.
const DefaultMixerControl = "Master"

var (
	volumePercent = regexp.MustCompile(`\[(\d{1,3})%\]`)
	volumeSwitch  = regexp.MustCompile(`\[(on|off)\]`)
)

// Volume reports the ALSA mixer level via amixer. Muted channels color
// the block degraded.
func Volume(runner Runner) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		control := args.StringOr("control", DefaultMixerControl)
		argv := []string{"amixer"}
		if card := args.StringOr("card", ""); card != "" {
			argv = append(argv, "-c", card)
		}
		argv = append(argv, "get", control)

		res, err := runner.Run(ctx, argv)
		if err != nil {
			return Reading{}, err
		}
		if res.ExitCode != 0 {
			return Reading{}, errors.Wrap(
				fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))),
				"amixer failed for control "+control)
		}

		percent, muted, err := ParseAmixer(string(res.Stdout))
		if err != nil {
			return Reading{}, errors.Wrap(err, "Unexpected amixer output")
		}

		r := Reading{
			Value: strconv.Itoa(percent),
			Fields: map[string]string{
				"percent": strconv.Itoa(percent),
				"muted":   strconv.FormatBool(muted),
			},
		}
		if muted {
			r.Color = block.ColorDegraded
		}
		return r, nil
	})
}

// ParseAmixer averages the channel percentages in `amixer get` output.
// The control counts as muted only when every channel with a switch is off.
func ParseAmixer(output string) (percent int, muted bool, err error) {
	var sum, channels, switches, off int
	for _, line := range strings.Split(output, "\n") {
		m := volumePercent.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		sum += n
		channels++

		if s := volumeSwitch.FindStringSubmatch(line); s != nil {
			switches++
			if s[1] == "off" {
				off++
			}
		}
	}
	if channels == 0 {
		return 0, false, fmt.Errorf("no volume levels found")
	}
	return sum / channels, switches > 0 && off == switches, nil
}
