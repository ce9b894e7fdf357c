package sshtest

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/pkg/sshutil"
)

// CommandResponse is a canned answer for a command pattern.
type CommandResponse struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Error    error
}

// MockHost is an sshutil.Conn backed by a MockFS. It answers the handful
// of read-only shell commands status blocks tend to run remotely, plus any
// canned responses. Anything else exits 127.
type MockHost struct {
	mu        sync.Mutex
	name      string
	fs        *MockFS
	closed    bool
	dead      bool
	commands  map[string]CommandResponse
	patterns  []string
	execCount int
}

// NewMockHost creates a host with an empty filesystem.
func NewMockHost(name string) *MockHost {
	return &MockHost{
		name:     name,
		fs:       NewMockFS(),
		commands: make(map[string]CommandResponse),
	}
}

var _ sshutil.Conn = (*MockHost)(nil)

// Exec runs cmd against the virtual host.
func (m *MockHost) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}

	m.mu.Lock()
	if m.closed || m.dead {
		m.mu.Unlock()
		return nil, nil, -1, errors.WrapWithCode(fmt.Errorf("connection closed"), errors.ErrSSH,
			"SSH session to "+m.name+" failed", "")
	}
	m.execCount++
	if resp, ok := m.commands[cmd]; ok {
		m.mu.Unlock()
		return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
	}
	for _, pattern := range m.patterns {
		if matched, _ := regexp.MatchString(pattern, cmd); matched {
			resp := m.commands[pattern]
			m.mu.Unlock()
			return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Error
		}
	}
	m.mu.Unlock()

	return m.run(strings.TrimSpace(strings.TrimSuffix(cmd, " 2>/dev/null")))
}

// Alive reports false once the host is closed or killed.
func (m *MockHost) Alive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed && !m.dead
}

// Close marks the connection closed.
func (m *MockHost) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Kill simulates the transport dropping: Exec fails and Alive reports
// false.
func (m *MockHost) Kill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = true
}

// Closed reports whether Close was called.
func (m *MockHost) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// ExecCount returns the number of commands run so far.
func (m *MockHost) ExecCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.execCount
}

// Name returns the host name.
func (m *MockHost) Name() string {
	return m.name
}

// FS returns the host's filesystem.
func (m *MockHost) FS() *MockFS {
	return m.fs
}

// SetCommandResponse registers a canned response. pattern is matched
// exactly first and then as a regular expression.
func (m *MockHost) SetCommandResponse(pattern string, resp CommandResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.commands[pattern]; !exists {
		m.patterns = append(m.patterns, pattern)
	}
	m.commands[pattern] = resp
}

func (m *MockHost) run(cmd string) ([]byte, []byte, int, error) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return nil, nil, 0, nil
	}

	switch {
	case fields[0] == "cat" && len(fields) == 2:
		return m.cat(extractPath(fields[1]))
	case fields[0] == "wc" && len(fields) >= 3 && fields[1] == "-l":
		return m.wcLines(extractPath(fields[len(fields)-1]))
	case strings.HasPrefix(cmd, "ls ") && strings.HasSuffix(cmd, "| wc -l"):
		return m.lsCount(extractPath(fields[len(fields)-4]))
	case fields[0] == "ls" && len(fields) == 2:
		return m.ls(extractPath(fields[1]))
	case (fields[0] == "test" || fields[0] == "[") && len(fields) >= 3:
		return m.test(fields[1], extractPath(fields[2]))
	case fields[0] == "uname":
		return []byte("Linux\n"), nil, 0, nil
	case fields[0] == "hostname":
		return []byte(m.name + "\n"), nil, 0, nil
	case fields[0] == "echo":
		return []byte(strings.Join(fields[1:], " ") + "\n"), nil, 0, nil
	}
	return nil, []byte(fmt.Sprintf("sh: %s: command not found\n", fields[0])), 127, nil
}

func (m *MockHost) cat(p string) ([]byte, []byte, int, error) {
	content, err := m.fs.ReadFile(p)
	if err != nil {
		return nil, []byte("cat: " + p + ": No such file or directory\n"), 1, nil
	}
	return content, nil, 0, nil
}

func (m *MockHost) wcLines(p string) ([]byte, []byte, int, error) {
	content, err := m.fs.ReadFile(p)
	if err != nil {
		return nil, []byte("wc: " + p + ": No such file or directory\n"), 1, nil
	}
	return []byte(strconv.Itoa(bytes.Count(content, []byte("\n"))) + "\n"), nil, 0, nil
}

func (m *MockHost) ls(p string) ([]byte, []byte, int, error) {
	names, err := m.fs.List(p)
	if err != nil {
		return nil, []byte("ls: cannot access '" + p + "': No such file or directory\n"), 2, nil
	}
	if len(names) == 0 {
		return nil, nil, 0, nil
	}
	return []byte(strings.Join(names, "\n") + "\n"), nil, 0, nil
}

func (m *MockHost) lsCount(p string) ([]byte, []byte, int, error) {
	names, err := m.fs.List(p)
	if err != nil {
		// The pipeline's status is wc's.
		return []byte("0\n"), []byte("ls: cannot access '" + p + "': No such file or directory\n"), 0, nil
	}
	return []byte(strconv.Itoa(len(names)) + "\n"), nil, 0, nil
}

func (m *MockHost) test(flag, p string) ([]byte, []byte, int, error) {
	var ok bool
	switch flag {
	case "-d":
		ok = m.fs.IsDir(p)
	case "-f":
		ok = m.fs.IsFile(p)
	case "-e":
		ok = m.fs.IsDir(p) || m.fs.IsFile(p)
	}
	if ok {
		return nil, nil, 0, nil
	}
	return nil, nil, 1, nil
}

// extractPath strips one level of shell quoting.
func extractPath(arg string) string {
	if len(arg) >= 2 && (arg[0] == '"' || arg[0] == '\'') && arg[len(arg)-1] == arg[0] {
		return arg[1 : len(arg)-1]
	}
	return arg
}
