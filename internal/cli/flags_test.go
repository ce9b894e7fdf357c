package cli

import (
	"testing"
	"time"

	"github.com/rileyhilliard/barstat/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationFlag(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		want    time.Duration
		wantErr bool
	}{
		{
			name: "valid seconds",
			flag: "5s",
			want: 5 * time.Second,
		},
		{
			name: "valid minutes",
			flag: "2m",
			want: 2 * time.Minute,
		},
		{
			name: "valid milliseconds",
			flag: "500ms",
			want: 500 * time.Millisecond,
		},
		{
			name: "bare number is seconds",
			flag: "2.5",
			want: 2500 * time.Millisecond,
		},
		{
			name: "zero",
			flag: "0",
			want: 0,
		},
		{
			name:    "empty string",
			flag:    "",
			wantErr: true,
		},
		{
			name:    "negative",
			flag:    "-1s",
			wantErr: true,
		},
		{
			name:    "invalid format returns error",
			flag:    "soon",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationFlag("interval", tt.flag)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "--interval")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddFlags(t *testing.T) {
	cmd := newRootCmd(capability.Env{})
	flags := cmd.Flags()

	for _, name := range []string{flagConfig, flagInterval, flagTaskTimeout, flagOutput} {
		assert.NotNil(t, flags.Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "c", flags.Lookup(flagConfig).Shorthand)
	assert.Equal(t, "i", flags.Lookup(flagInterval).Shorthand)
}

func TestValidateFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"no flags", nil, false},
		{"valid overrides", []string{"--interval", "5s", "--task-timeout", "0", "--output", "term"}, false},
		{"bad interval", []string{"--interval", "fast"}, true},
		{"short interval", []string{"--interval", "0.1"}, true},
		{"bad task timeout", []string{"--task-timeout", "later"}, true},
		{"bad output", []string{"--output", "json"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd(capability.Env{})
			require.NoError(t, cmd.ParseFlags(tt.args))

			err := validateFlags(cmd)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
