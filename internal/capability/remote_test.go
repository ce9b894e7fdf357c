package capability

import (
	"context"
	"fmt"
	"testing"

	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/pkg/sshutil"
	"github.com/rileyhilliard/barstat/pkg/sshutil/sshtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	stdout string
	stderr string
	code   int
	err    error
	calls  []string
}

func (f *fakeRemote) Run(_ context.Context, host, command string) ([]byte, []byte, int, error) {
	f.calls = append(f.calls, host+": "+command)
	return []byte(f.stdout), []byte(f.stderr), f.code, f.err
}

func TestRemoteCommand(t *testing.T) {
	remote := &fakeRemote{stdout: " 42 \n"}

	got, err := RemoteCommand(remote).Measure(context.Background(), args("host", "nas", "command", "ls | wc -l"))
	require.NoError(t, err)
	assert.Equal(t, "42", got.Value)
	assert.Equal(t, []string{"nas: ls | wc -l"}, remote.calls)
}

func TestRemoteCommand_Errors(t *testing.T) {
	tests := []struct {
		name      string
		remote    *fakeRemote
		args      []string
		permanent bool
	}{
		{"missing host", &fakeRemote{}, []string{"command", "x"}, true},
		{"missing command", &fakeRemote{}, []string{"host", "nas"}, true},
		{"non-zero exit", &fakeRemote{code: 1, stderr: "denied"}, []string{"host", "nas", "command", "x"}, false},
		{"connection failure", &fakeRemote{code: -1, err: errors.New(errors.ErrSSH, "unreachable", "")}, []string{"host", "nas", "command", "x"}, false},
		{"plain error", &fakeRemote{code: -1, err: fmt.Errorf("eof")}, []string{"host", "nas", "command", "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RemoteCommand(tt.remote).Measure(context.Background(), args(tt.args...))
			require.Error(t, err)
			assert.Equal(t, tt.permanent, errors.IsPermanent(err))
		})
	}
}

func TestRemoteCommand_OverPool(t *testing.T) {
	network := sshtest.NewNetwork()
	network.Add("nas", func(h *sshtest.MockHost) {
		sshtest.WithFiles(h, map[string]string{
			"/srv/incoming/a.mkv": "",
			"/srv/incoming/b.mkv": "",
		})
	})
	pool := sshutil.NewPool(network.Dial)
	defer pool.Close()

	remote := RemoteCommand(pool)
	measure := args("host", "nas", "command", "ls /srv/incoming | wc -l")

	got, err := remote.Measure(context.Background(), measure)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Value)

	// The connection is reused across cycles.
	_, err = remote.Measure(context.Background(), measure)
	require.NoError(t, err)
	assert.Len(t, network.Connections("nas"), 1)

	// A dead transport is replaced before the next command.
	network.Connections("nas")[0].Kill()
	got, err = remote.Measure(context.Background(), measure)
	require.NoError(t, err)
	assert.Equal(t, "2", got.Value)
	assert.Len(t, network.Connections("nas"), 2)

	_, err = remote.Measure(context.Background(), args("host", "nas", "command", "ls /nope"))
	require.Error(t, err)
	assert.False(t, errors.IsPermanent(err))

	_, err = remote.Measure(context.Background(), args("host", "offline", "command", "uptime"))
	assert.Error(t, err)
}
