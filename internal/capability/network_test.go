package capability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	known  map[string]bool
	lookup []string
}

func (f *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	f.lookup = append(f.lookup, host)
	if _, ok := ctx.Deadline(); !ok {
		return nil, fmt.Errorf("no deadline set")
	}
	if f.known[host] {
		return []string{"192.0.2.10"}, nil
	}
	return nil, fmt.Errorf("no such host")
}

func TestDNSLookup(t *testing.T) {
	resolver := &fakeResolver{known: map[string]bool{"example.com": true}}
	capability := DNSLookup(resolver)

	tests := []struct {
		address string
		want    string
		color   string
	}{
		{"https://example.com/path", StatusUp, block.ColorGood},
		{"example.com:443", StatusUp, block.ColorGood},
		{"example.com", StatusUp, block.ColorGood},
		{"http://nope.invalid", StatusDown, block.ColorBad},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, err := capability.Measure(context.Background(), args("address", tt.address))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.color, got.Color)
		})
	}
	assert.Equal(t, []string{"example.com", "example.com", "example.com", "nope.invalid"}, resolver.lookup)

	_, err := capability.Measure(context.Background(), args())
	assert.Error(t, err)
}

func TestWANConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	capability := WANConnection(srv.Client())

	tests := []struct {
		name    string
		address string
		want    string
		color   string
	}{
		{"reachable", srv.URL + "/", StatusUp, block.ColorGood},
		{"server error", srv.URL + "/broken", StatusDown, block.ColorBad},
		{"unreachable", "http://127.0.0.1:1/", StatusDown, block.ColorBad},
		{"malformed", "http://[::1", StatusError, block.ColorDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := capability.Measure(context.Background(), args("address", tt.address))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.color, got.Color)
		})
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "example.com", hostOf("https://example.com:8443/x"))
	assert.Equal(t, "example.com", hostOf("example.com:53"))
	assert.Equal(t, "example.com", hostOf(" example.com "))
	assert.Equal(t, "::1", hostOf("[::1]:53"))
}
