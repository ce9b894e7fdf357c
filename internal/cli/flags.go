package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/spf13/cobra"
)

// Flag names. The loader binds these to the general settings of the same
// meaning, so they also apply on every reload.
const (
	flagConfig      = "config"
	flagInterval    = "interval"
	flagTaskTimeout = "task-timeout"
	flagOutput      = "output"
)

// addFlags registers the root command's flags.
func addFlags(cmd *cobra.Command, configPath *string) {
	flags := cmd.Flags()
	flags.StringVarP(configPath, flagConfig, "c", "", "config file (default ~/.config/barstat/config.yaml)")
	flags.StringP(flagInterval, "i", "", "refresh interval, e.g. 5s or 2.5 (default 10s)")
	flags.String(flagTaskTimeout, "", "deadline for each block per cycle, 0 disables (default: the interval)")
	flags.String(flagOutput, "", "output format: i3bar or term (default i3bar)")
}

// validateFlags checks flag values before anything is loaded, so a typo on
// the command line is reported as such rather than as a config problem.
func validateFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if flags.Changed(flagInterval) {
		raw, _ := flags.GetString(flagInterval)
		d, err := ParseDurationFlag(flagInterval, raw)
		if err != nil {
			return err
		}
		if d < config.MinInterval {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("--interval %s is too short", raw),
				fmt.Sprintf("Use at least %s.", config.MinInterval))
		}
	}

	if flags.Changed(flagTaskTimeout) {
		raw, _ := flags.GetString(flagTaskTimeout)
		if _, err := ParseDurationFlag(flagTaskTimeout, raw); err != nil {
			return err
		}
	}

	if flags.Changed(flagOutput) {
		raw, _ := flags.GetString(flagOutput)
		switch raw {
		case config.OutputI3bar, config.OutputTerm:
		default:
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' isn't an output format", raw),
				"Use --output i3bar or --output term.")
		}
	}
	return nil
}

// ParseDurationFlag parses a duration flag. Bare numbers are seconds.
func ParseDurationFlag(name, flag string) (time.Duration, error) {
	duration, err := config.ParseInterval(flag)
	if err != nil || duration < 0 {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid --%s", flag, name),
			"Try something like 5s, 2m, 500ms, or a number of seconds.")
	}
	return duration, nil
}
