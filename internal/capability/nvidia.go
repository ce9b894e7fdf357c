package capability

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/units"
)

// nvidiaQuery is the column order ParseNvidiaSMI expects.
const nvidiaQuery = "name,temperature.gpu,fan.speed,memory.used,memory.free,memory.total"

// GPUStats is one GPU's row from nvidia-smi. Memory is in bytes; -1
// marks a value the driver reported as [N/A].
type GPUStats struct {
	Name        string
	Temperature int
	FanPercent  int
	MemoryUsed  int64
	MemoryFree  int64
	MemoryTotal int64
}

// NvidiaStats queries one GPU through nvidia-smi.
func NvidiaStats(runner Runner) Capability {
	return Func(func(ctx context.Context, args config.Args) (Reading, error) {
		index, err := args.Int("gpu", 0)
		if err != nil {
			return Reading{}, err
		}

		res, err := runner.Run(ctx, []string{
			"nvidia-smi",
			"--query-gpu=" + nvidiaQuery,
			"--format=csv,noheader,nounits",
			"--id=" + strconv.Itoa(index),
		})
		if err != nil {
			return Reading{}, err
		}
		if res.ExitCode != 0 {
			return Reading{}, errors.Wrap(
				fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr))),
				fmt.Sprintf("nvidia-smi failed for GPU %d", index))
		}

		stats, err := ParseNvidiaSMI(string(res.Stdout))
		if err != nil {
			return Reading{}, errors.Wrap(err, "Unexpected nvidia-smi output")
		}
		return gpuReading(stats), nil
	})
}

// ParseNvidiaSMI parses the first row of
// nvidia-smi --query-gpu=name,temperature.gpu,fan.speed,memory.used,memory.free,memory.total --format=csv,noheader,nounits
// Example: "NVIDIA GeForce RTX 3080, 65, 40, 2048, 8192, 10240".
func ParseNvidiaSMI(output string) (GPUStats, error) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	if line == "" {
		return GPUStats{}, fmt.Errorf("no GPU reported")
	}

	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return GPUStats{}, fmt.Errorf("expected 6 fields, got %d", len(fields))
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	stats := GPUStats{Name: fields[0]}
	var err error
	if stats.Temperature, err = parseGPUInt(fields[1], "temperature"); err != nil {
		return GPUStats{}, err
	}
	if stats.FanPercent, err = parseGPUInt(fields[2], "fan speed"); err != nil {
		return GPUStats{}, err
	}
	mem := []*int64{&stats.MemoryUsed, &stats.MemoryFree, &stats.MemoryTotal}
	for i, dst := range mem {
		mib, err := parseGPUInt(fields[3+i], "memory")
		if err != nil {
			return GPUStats{}, err
		}
		*dst = -1
		if mib >= 0 {
			*dst = int64(mib) * 1024 * 1024
		}
	}
	return stats, nil
}

// parseGPUInt returns -1 for [N/A] and similar placeholders.
func parseGPUInt(s, what string) (int, error) {
	if s == "" || strings.HasPrefix(s, "[") {
		return -1, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse GPU %s '%s': %w", what, s, err)
	}
	return int(f), nil
}

func gpuReading(s GPUStats) Reading {
	fields := map[string]string{
		"name":        s.Name,
		"temperature": optInt(int64(s.Temperature)),
		"pfan":        optInt(int64(s.FanPercent)),
		"used":        gpuMemory(s.MemoryUsed),
		"free":        gpuMemory(s.MemoryFree),
		"total":       gpuMemory(s.MemoryTotal),
		"pused":       "?",
		"pfree":       "?",
	}
	if s.MemoryTotal > 0 && s.MemoryUsed >= 0 && s.MemoryFree >= 0 {
		fields["pused"] = strconv.FormatUint(units.Percent(uint64(s.MemoryUsed), uint64(s.MemoryTotal)), 10)
		fields["pfree"] = strconv.FormatUint(units.Percent(uint64(s.MemoryFree), uint64(s.MemoryTotal)), 10)
	}
	return Reading{Value: fields["temperature"], Fields: fields}
}

func gpuMemory(b int64) string {
	if b < 0 {
		return "?"
	}
	return units.Bytes(uint64(b), units.Binary, "MiB")
}

func optInt(n int64) string {
	if n < 0 {
		return "?"
	}
	return strconv.FormatInt(n, 10)
}
