package capability

import (
	"context"
	"strconv"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/rileyhilliard/barstat/internal/units"
)

// DiskStats is the subset of statvfs the disk_space kind needs.
type DiskStats struct {
	// Blocks is the filesystem size in fragments.
	Blocks uint64
	// Avail is the fragments available to unprivileged users.
	Avail uint64
	// FragmentSize is the fragment size in bytes.
	FragmentSize uint64
}

// StatFunc reads filesystem statistics for the filesystem holding path.
type StatFunc func(path string) (DiskStats, error)

// DiskSpace reports usage of the filesystem mounted at the mount argument.
func DiskSpace(stat StatFunc) Capability {
	return Func(func(_ context.Context, args config.Args) (Reading, error) {
		mount, err := args.String("mount")
		if err != nil {
			return Reading{}, err
		}
		prefix, err := units.ParsePrefix(args.StringOr("prefix", ""))
		if err != nil {
			return Reading{}, errors.New(errors.ErrConfig,
				"'"+args.Instance()+"' has an invalid prefix: "+args["prefix"],
				"Use binary or decimal.")
		}
		low, err := args.Bytes("low_threshold", 0)
		if err != nil {
			return Reading{}, err
		}

		st, err := stat(config.ExpandPath(mount))
		if err != nil {
			return Reading{}, errors.Wrap(err, "Couldn't stat "+mount)
		}
		return diskReading(mount, st, prefix, low), nil
	})
}

func diskReading(mount string, st DiskStats, prefix units.Prefix, low uint64) Reading {
	used := st.Blocks - min(st.Avail, st.Blocks)
	free := st.Avail * st.FragmentSize
	r := Reading{
		Value: units.Bytes(free, prefix, ""),
		Fields: map[string]string{
			"mount": mount,
			"free":  units.Bytes(free, prefix, ""),
			"used":  units.Bytes(used*st.FragmentSize, prefix, ""),
			"total": units.Bytes(st.Blocks*st.FragmentSize, prefix, ""),
			"pfree": strconv.FormatUint(units.Percent(st.Avail, st.Blocks), 10),
			"pused": strconv.FormatUint(units.Percent(used, st.Blocks), 10),
		},
	}
	if low > 0 && free < low {
		r.Color = block.ColorDegraded
	}
	return r
}
