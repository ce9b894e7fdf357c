package sshutil

import "context"

// Conn is a pooled connection able to run commands. *Client satisfies it;
// tests substitute an in-memory implementation.
type Conn interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	// Exit code is -1 if the command couldn't be executed at all.
	// A non-zero exit code with nil error means the command ran but failed.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// Alive reports whether the transport is still usable.
	Alive() bool

	Close() error
}

// DialFunc opens a connection to host.
type DialFunc func(ctx context.Context, host string) (Conn, error)
