package capability

import (
	"context"

	"github.com/ncruces/go-strftime"
	"github.com/rileyhilliard/barstat/internal/clock"
	"github.com/rileyhilliard/barstat/internal/config"
)

// DefaultDateFormat is used when a date_time entry has no format.
const DefaultDateFormat = " %a %Y-%m-%d %H:%M "

// DateTime renders the current time with the entry's format read as a
// strftime pattern.
func DateTime(c clock.Clock) Capability {
	return Func(func(_ context.Context, args config.Args) (Reading, error) {
		layout := args.StringOr(config.KeyFormat, DefaultDateFormat)
		return Reading{FullText: strftime.Format(layout, c.Now())}, nil
	})
}
