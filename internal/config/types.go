package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/zeebo/xxh3"
)

// Reserved entry keys. Everything else in an entry is a kind argument.
const (
	KeyFunction  = "function"
	KeyFormat    = "format"
	KeySeparator = "separator"
	KeyColor     = "color"
)

// Output modes for the primary stream.
const (
	OutputI3bar = "i3bar"
	OutputTerm  = "term"
)

// Config is one parsed view of the config file.
type Config struct {
	Path     string
	General  General
	Snapshot Snapshot

	// Problems holds one error per block entry that could not be parsed.
	// Those entries are absent from Snapshot.
	Problems []error
}

// General holds the settings outside the blocks section.
type General struct {
	// Interval is the sleep between cycles.
	Interval time.Duration
	// TaskTimeout bounds one measurement. Zero disables the bound.
	TaskTimeout time.Duration
	Output      string
	// Separator is the default for entries that don't set one.
	Separator bool
	Colors    Colors
}

// Colors are the semantic color values, each a name or hex string.
type Colors struct {
	Good     string
	Degraded string
	Bad      string
}

// Snapshot is the ordered set of configured instances for one cycle.
// Order is emission order.
type Snapshot struct {
	Entries []Entry
}

// Instances returns the instance keys in order.
func (s Snapshot) Instances() []string {
	out := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Instance
	}
	return out
}

// Lookup finds an entry by instance key.
func (s Snapshot) Lookup(instance string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Instance == instance {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// Entry is one configured instance. It is a value: replacing a task's
// entry never affects a computation that already captured the old one.
type Entry struct {
	Instance  string
	Kind      string
	Format    string
	Separator bool
	Color     string
	Args      Args
}

// Fingerprint identifies the entry's full configuration. Two entries with
// equal fingerprints configure the same measurement.
func (e Entry) Fingerprint() uint64 {
	var b strings.Builder
	b.WriteString(e.Instance)
	b.WriteByte(0)
	b.WriteString(e.Kind)
	b.WriteByte(0)
	b.WriteString(e.Format)
	b.WriteByte(0)
	b.WriteString(strconv.FormatBool(e.Separator))
	b.WriteByte(0)
	b.WriteString(e.Color)
	for _, k := range e.Args.Keys() {
		b.WriteByte(0)
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(e.Args[k])
	}
	return xxh3.HashString(b.String())
}

// Args are the kind-specific settings of an entry, kept as strings the way
// they appeared in the file. Getters convert and report config errors
// naming the owning instance.
type Args map[string]string

// Keys returns the argument names sorted.
func (a Args) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is set.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Instance returns the owning instance key, used in error messages.
func (a Args) Instance() string {
	return a["instance"]
}

// String returns a required argument.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.MissingField(a.Instance(), key)
	}
	return v, nil
}

// StringOr returns an optional argument or def.
func (a Args) StringOr(key, def string) string {
	if v, ok := a[key]; ok && v != "" {
		return v
	}
	return def
}

// Int returns an optional integer argument or def.
func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, a.invalid(key, v, "a whole number")
	}
	return n, nil
}

// Bool returns an optional boolean argument or def.
func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	b, err := ParseBool(v)
	if err != nil {
		return false, a.invalid(key, v, "true or false")
	}
	return b, nil
}

// Duration returns an optional duration argument ("2s", "500ms") or def.
func (a Args) Duration(key string, def time.Duration) (time.Duration, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, a.invalid(key, v, "a duration like 2s or 500ms")
	}
	return d, nil
}

// Bytes returns an optional size argument ("5 GiB", "500MB", "1024") or def.
func (a Args) Bytes(key string, def uint64) (uint64, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := humanize.ParseBytes(v)
	if err != nil {
		return 0, a.invalid(key, v, "a size like 5 GiB or 500MB")
	}
	return n, nil
}

func (a Args) invalid(key, value, want string) error {
	return errors.New(errors.ErrConfig,
		fmt.Sprintf("'%s' has an invalid %s: %q", a.Instance(), key, value),
		fmt.Sprintf("Set %s to %s.", key, want))
}

// ParseBool accepts the spellings INI-style configs use: true/false,
// yes/no, on/off, 1/0.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", s)
}
