package capability

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// Result is the captured outcome of a command.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner runs a local command. A non-zero exit is reported in Result with a
// nil error; the error is for commands that couldn't run at all.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

// waitDelay bounds how long Run waits for output pipes to close after the
// process is killed.
const waitDelay = 500 * time.Millisecond

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts argv and waits for it. Cancelling ctx kills the process and, on
// Linux, every process it started.
func (ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{ExitCode: -1}, errors.New(errors.ErrExec, "No command given", "")
	}

	command := exec.CommandContext(ctx, argv[0], argv[1:]...)
	configureProcessGroup(command)
	command.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{ExitCode: -1}, errors.WrapWithCode(ctxErr, errors.ErrExec,
			fmt.Sprintf("'%s' didn't finish in time", argv[0]),
			"The command is retried next cycle.")
	}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: exitErr.ExitCode()}, nil
		}
		return Result{ExitCode: -1}, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Couldn't run '%s'", argv[0]),
			"Make sure the command exists and is executable.")
	}
	return Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
}

// ShellCommand wraps a command line for the user's shell so pipes and
// redirects work.
func ShellCommand(line string) []string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return []string{shell, "-c", line}
}

// runCommand runs the entry's command argument and checks its exit code
// against the accepted set.
func runCommand(ctx context.Context, runner Runner, args config.Args) ([]byte, error) {
	line, err := args.String("command")
	if err != nil {
		return nil, err
	}
	accepted, err := exitCodes(args)
	if err != nil {
		return nil, err
	}

	res, err := runner.Run(ctx, ShellCommand(line))
	if err != nil {
		return nil, err
	}
	if !accepted[res.ExitCode] {
		return nil, errors.WrapWithCode(
			fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))),
			errors.ErrMeasure,
			fmt.Sprintf("'%s' command failed", args.Instance()),
			"Run the command by hand to see what it reports.")
	}
	return res.Stdout, nil
}

// exitCodes parses the optional exit_codes argument ("0,2"). Some tools
// signal "nothing to report" with a non-zero status.
func exitCodes(args config.Args) (map[int]bool, error) {
	raw := args.StringOr("exit_codes", "0")
	codes := make(map[int]bool)
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' has an invalid exit_codes: %q", args.Instance(), raw),
				"List accepted exit codes separated by commas, like 0,2.")
		}
		codes[n] = true
	}
	return codes, nil
}

// OutputText shows the trimmed stdout of a command.
func OutputText(runner Runner) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		out, err := runCommand(ctx, runner, args)
		if err != nil {
			return Reading{}, err
		}
		return Reading{Value: strings.TrimSpace(string(out))}, nil
	})
}

// OutputLineCount shows how many lines a command printed.
func OutputLineCount(runner Runner) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		out, err := runCommand(ctx, runner, args)
		if err != nil {
			return Reading{}, err
		}
		n, _ := countLines(bytes.NewReader(out))
		return Reading{Value: strconv.Itoa(n)}, nil
	})
}
