package capability

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/config"
)

// Network probes never wait longer than these, whatever the task deadline.
const (
	DNSTimeout  = 2 * time.Second
	HTTPTimeout = 3 * time.Second
)

// Connectivity states shown by the network kinds.
const (
	StatusUp    = "UP"
	StatusDown  = "DOWN"
	StatusError = "ERROR"
)

// Resolver looks up host names. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DNSLookup reports UP when the address's host name resolves.
func DNSLookup(resolver Resolver) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		address, err := args.String("address")
		if err != nil {
			return Reading{}, err
		}

		ctx, cancel := context.WithTimeout(ctx, DNSTimeout)
		defer cancel()

		status, color := StatusUp, block.ColorGood
		if _, err := resolver.LookupHost(ctx, hostOf(address)); err != nil {
			status, color = StatusDown, block.ColorBad
		}
		return Reading{Value: status, Color: color}, nil
	})
}

// hostOf extracts the host name from a URL, host:port or bare host.
func hostOf(address string) string {
	address = strings.TrimSpace(address)
	if u, err := url.Parse(address); err == nil && u.Host != "" {
		return u.Hostname()
	}
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}

// WANConnection reports UP when an HTTP GET of address gets a non-error
// response, DOWN when the request fails, and ERROR when the address can't
// be requested at all.
func WANConnection(client Doer) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		address, err := args.String("address")
		if err != nil {
			return Reading{}, err
		}

		ctx, cancel := context.WithTimeout(ctx, HTTPTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
		if err != nil {
			return Reading{Value: StatusError, Color: block.ColorDegraded}, nil
		}
		resp, err := client.Do(req)
		if err != nil {
			return Reading{Value: StatusDown, Color: block.ColorBad}, nil
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		if resp.StatusCode >= http.StatusBadRequest {
			return Reading{Value: StatusDown, Color: block.ColorBad}, nil
		}
		return Reading{Value: StatusUp, Color: block.ColorGood}, nil
	})
}
