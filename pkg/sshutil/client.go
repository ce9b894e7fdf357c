package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultTimeout bounds connection setup. A status bar can't wait on a
// host that has gone away.
const DefaultTimeout = 5 * time.Second

// Client wraps an SSH connection with the alias it was dialed by.
type Client struct {
	*ssh.Client
	Host    string // The host/alias used to connect
	Address string // The resolved host:port
}

// Options controls how Dial finds settings and verifies hosts.
type Options struct {
	Timeout time.Duration
	// ConfigPath is the ssh_config file consulted for aliases.
	ConfigPath string
	// KnownHostsPath is used when StrictHostKeyChecking is set.
	KnownHostsPath        string
	StrictHostKeyChecking bool
	Logger                logger.Logger
}

// DefaultOptions reads ~/.ssh/config and verifies against ~/.ssh/known_hosts.
func DefaultOptions() Options {
	return Options{
		Timeout:               DefaultTimeout,
		ConfigPath:            filepath.Join(homeDir(), ".ssh", "config"),
		KnownHostsPath:        filepath.Join(homeDir(), ".ssh", "known_hosts"),
		StrictHostKeyChecking: true,
		Logger:                logger.NewEnvLogger("[ssh]"),
	}
}

// Dialer returns a DialFunc for use with a Pool.
func (o Options) Dialer() DialFunc {
	return func(ctx context.Context, host string) (Conn, error) {
		client, err := Dial(ctx, host, o)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// matchWarningOnce keeps the Match directive warning to once per process.
var matchWarningOnce sync.Once

// Dial establishes an SSH connection. The host can be an ssh_config alias,
// a hostname, user@hostname or hostname:port. Cancelling ctx aborts the
// TCP connect; the handshake is bounded by opts.Timeout.
func Dial(ctx context.Context, host string, opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logger.Noop()
	}

	settings := resolveSSHSettings(host, opts.ConfigPath, opts.Logger)

	config, err := buildSSHConfig(settings, opts)
	if err != nil {
		var structured *errors.Error
		if stderrors.As(err, &structured) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	address := settings.address()
	dialer := net.Dialer{Timeout: opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, address),
			suggestionForDialError(err))
	}

	// ssh.NewClientConn has no context; a deadline on the socket stands in.
	_ = conn.SetDeadline(time.Now().Add(opts.Timeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrSSH, hostKeyErr.Error(), hostKeyErr.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	opts.Logger.Debug("connected to %s (%s)", host, address)
	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Host:    host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// Alive sends a keepalive request. A dead transport fails immediately.
func (c *Client) Alive() bool {
	if c == nil || c.Client == nil {
		return false
	}
	_, _, err := c.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// sshSettings holds resolved connection parameters.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSSHSettings splits user@host:port and fills the rest from the
// ssh_config at configPath when it has an entry for the host.
func resolveSSHSettings(host, configPath string, log logger.Logger) *sshSettings {
	settings := &sshSettings{port: "22", user: currentUser()}

	if at := strings.Index(host, "@"); at != -1 {
		settings.user = host[:at]
		host = host[at+1:]
	}
	if colon := strings.LastIndex(host, ":"); colon != -1 && isDigits(host[colon+1:]) {
		settings.port = host[colon+1:]
		host = host[:colon]
	}
	settings.hostname = host

	if configPath == "" {
		return settings
	}
	content, matchLine, err := preprocessSSHConfig(configPath)
	if err != nil {
		return settings
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		log.Warn("ignoring unreadable ssh config %s: %v", configPath, err)
		return settings
	}

	found := false
	if v, _ := cfg.Get(host, "HostName"); v != "" {
		settings.hostname = v
		found = true
	}
	if v, _ := cfg.Get(host, "Port"); v != "" {
		settings.port = v
		found = true
	}
	if v, _ := cfg.Get(host, "User"); v != "" {
		settings.user = v
		found = true
	}
	if v, _ := cfg.Get(host, "IdentityFile"); v != "" {
		settings.identityFile = expandPath(v)
		found = true
	}

	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			log.Warn("host '%s' not found in %s; entries after the Match block at line %d are not read",
				host, configPath, matchLine)
		})
	}
	return settings
}

// buildSSHConfig collects auth methods (agent first, then key files) and
// the host key callback.
func buildSSHConfig(settings *sshSettings, opts Options) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod

	tryKeyFile := func(keyPath string) {
		method, err := keyFileAuth(keyPath)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				settings.encryptedKeys = append(settings.encryptedKeys, keyPath)
			}
			return
		}
		auth = append(auth, method)
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		auth = append(auth, agentAuth)
	}
	if settings.identityFile != "" {
		tryKeyFile(settings.identityFile)
	}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keyPath := filepath.Join(homeDir(), ".ssh", name)
		if keyPath != settings.identityFile {
			tryKeyFile(keyPath)
		}
	}

	if len(auth) == 0 {
		if len(settings.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				"Found SSH key(s) but they're encrypted: "+strings.Join(settings.encryptedKeys, ", "),
				addKeysSuggestion(settings.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opted out via StrictHostKeyChecking
	if opts.StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = createHostKeyCallback(opts.KnownHostsPath)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrSSH,
				"Failed to load known_hosts from "+opts.KnownHostsPath,
				"Connect once with ssh <host> to record the host key")
		}
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}, nil
}

var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns agent auth when SSH_AUTH_SOCK has keys loaded. The
// agent connection is shared by every dial.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})
	if agentClient == nil {
		return nil
	}

	// An empty agent placed first makes later key auth fail.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}
	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the shared agent connection.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || isEncryptedPEM(key) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Is SSH running on that box? Try: ssh <host>"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "Can't route to the host. Check your network connection."
	case strings.Contains(msg, "timeout"):
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	msg := err.Error()
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return addKeysSuggestion(encryptedKeys)
		}
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(msg, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

func addKeysSuggestion(keys []string) string {
	var sb strings.Builder
	sb.WriteString("Add your key(s) to the agent:\n")
	for _, key := range keys {
		fmt.Fprintf(&sb, "  ssh-add %s\n", key)
	}
	sb.WriteString("\nNot sure which key? Check with: ssh -v <host>")
	return sb.String()
}

// EncryptedKeyError is returned when a key needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError carries what known_hosts expected.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that fix a stale known_hosts entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	want := "unknown"
	if len(e.Want) > 0 {
		types := make([]string, len(e.Want))
		for i, k := range e.Want {
			types[i] = k.Key.Type()
		}
		want = strings.Join(types, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match known_hosts (known: %s, sent: %s).\n"+
			"  Remove the old entry: ssh-keygen -R %s\n"+
			"  Then connect once with: ssh %s",
		want, e.ReceivedType, host, host)
}

// preprocessSSHConfig returns the config up to the first Match directive,
// which ssh_config can't parse, and that directive's line (0 if none).
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}

	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED"))
}

// createHostKeyCallback wraps knownhosts to turn key mismatches into a
// HostKeyMismatchError. Unlike an interactive client it never writes
// known_hosts: unknown hosts are rejected.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if err != nil && stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
