package capability

import (
	"context"
	"fmt"
	"strings"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// RemoteRunner runs a command on a named host. *sshutil.Pool satisfies it.
type RemoteRunner interface {
	Run(ctx context.Context, host, command string) (stdout, stderr []byte, exitCode int, err error)
}

// RemoteCommand shows the trimmed stdout of a command run over SSH.
func RemoteCommand(remote RemoteRunner) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		host, err := args.String("host")
		if err != nil {
			return Reading{}, err
		}
		command, err := args.String("command")
		if err != nil {
			return Reading{}, err
		}

		stdout, stderr, code, err := remote.Run(ctx, host, command)
		if err != nil {
			return Reading{}, err
		}
		if code != 0 {
			return Reading{}, errors.WrapWithCode(
				fmt.Errorf("exit status %d: %s", code, strings.TrimSpace(string(stderr))),
				errors.ErrMeasure,
				fmt.Sprintf("'%s' command failed on %s", args.Instance(), host),
				"Run it by hand with: ssh "+host)
		}
		return Reading{Value: strings.TrimSpace(string(stdout))}, nil
	})
}
