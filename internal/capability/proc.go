package capability

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/units"
)

// DefaultProcDir is where the kernel's process filesystem is mounted.
const DefaultProcDir = "/proc"

// SystemLoad reports the 1, 5 and 15 minute load averages.
func SystemLoad(procDir string) Capability {
	return Func(func(_ context.Context, _ config.Args) (Reading, error) {
		raw, err := os.ReadFile(filepath.Join(procDir, "loadavg"))
		if err != nil {
			return Reading{}, errors.Wrap(err, "Couldn't read load average")
		}
		return ParseLoadavg(string(raw))
	})
}

// ParseLoadavg parses /proc/loadavg: "0.10 0.20 0.30 1/123 4567".
func ParseLoadavg(content string) (Reading, error) {
	fields := strings.Fields(content)
	if len(fields) < 3 {
		return Reading{}, errors.Wrap(
			fmt.Errorf("expected 3 load fields, got %d", len(fields)),
			"Unexpected load average format")
	}
	return Reading{
		Value: strings.Join(fields[:3], " "),
		Fields: map[string]string{
			"load1":  fields[0],
			"load5":  fields[1],
			"load15": fields[2],
		},
	}, nil
}

// Uptime reports time since boot.
func Uptime(procDir string) Capability {
	return Func(func(_ context.Context, _ config.Args) (Reading, error) {
		raw, err := os.ReadFile(filepath.Join(procDir, "uptime"))
		if err != nil {
			return Reading{}, errors.Wrap(err, "Couldn't read uptime")
		}
		return ParseUptime(string(raw))
	})
}

// ParseUptime parses /proc/uptime: "12345.67 54321.00". Fractional
// seconds are dropped.
func ParseUptime(content string) (Reading, error) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return Reading{}, errors.Wrap(fmt.Errorf("empty uptime"), "Unexpected uptime format")
	}
	whole, _, _ := strings.Cut(fields[0], ".")
	secs, err := strconv.ParseUint(whole, 10, 64)
	if err != nil {
		return Reading{}, errors.Wrap(err, "Unexpected uptime format")
	}
	return Reading{
		Value:  units.Duration(secs),
		Fields: map[string]string{"seconds": whole},
	}, nil
}
