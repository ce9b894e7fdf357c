package capability

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rileyhilliard/barstat/internal/config"
	"github.com/rileyhilliard/barstat/internal/errors"
)

// FileCount counts entries in directory, or those matching pattern.
func FileCount() Capability {
	return Func(func(_ context.Context, args config.Args) (Reading, error) {
		dir, err := args.String("directory")
		if err != nil {
			return Reading{}, err
		}
		dir = config.ExpandPath(dir)

		var n int
		if pattern := args.StringOr("pattern", ""); pattern != "" {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				return Reading{}, errors.WrapWithCode(err, errors.ErrConfig,
					"'"+args.Instance()+"' has an invalid pattern: "+pattern,
					"Use shell glob syntax like *.pkg.tar.zst.")
			}
			n = len(matches)
		} else {
			entries, err := os.ReadDir(dir)
			if err != nil {
				return Reading{}, errors.Wrap(err, "Couldn't list "+dir)
			}
			n = len(entries)
		}
		return Reading{Value: strconv.Itoa(n)}, nil
	})
}

// FileLineCount counts lines in a file. A final line without a newline
// still counts.
func FileLineCount() Capability {
	return Func(func(_ context.Context, args config.Args) (Reading, error) {
		path, err := args.String("path")
		if err != nil {
			return Reading{}, err
		}
		path = config.ExpandPath(path)

		f, err := os.Open(path)
		if err != nil {
			return Reading{}, errors.Wrap(err, "Couldn't open "+path)
		}
		defer f.Close()

		n, err := countLines(f)
		if err != nil {
			return Reading{}, errors.Wrap(err, "Couldn't read "+path)
		}
		return Reading{Value: strconv.Itoa(n)}, nil
	})
}

func countLines(r io.Reader) (int, error) {
	buf := make([]byte, 32*1024)
	count := 0
	var last byte = '\n'

	for {
		n, err := r.Read(buf)
		if n > 0 {
			count += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
	}
	if last != '\n' {
		count++
	}
	return count, nil
}
