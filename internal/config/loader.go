package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rileyhilliard/barstat/internal/block"
	"github.com/rileyhilliard/barstat/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	// GlobalConfigDir is the directory for the default config, relative to $HOME.
	GlobalConfigDir = ".config/barstat"
	// GlobalConfigFile is the default config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides: BARSTAT_GENERAL_INTERVAL=5s.
	EnvPrefix = "BARSTAT"

	// MinInterval keeps a misconfigured bar from spinning subprocesses.
	MinInterval = 500 * time.Millisecond
	// DefaultInterval matches the usual i3status refresh.
	DefaultInterval = 10 * time.Second

	generalKey = "general"
	blocksKey  = "blocks"
)

// flagKeys maps CLI flag names onto general settings.
var flagKeys = map[string]string{
	"interval":     "general.interval",
	"task-timeout": "general.task_timeout",
	"output":       "general.output",
}

// DefaultPath returns ~/.config/barstat/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(GlobalConfigDir, GlobalConfigFile)
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// Loader reads the config file on demand. The same Loader serves the
// startup load and every per-cycle reload.
type Loader struct {
	path  string
	flags *pflag.FlagSet
}

// NewLoader creates a loader for path. Flags, when non-nil, override
// general settings for any flag the user actually set.
func NewLoader(path string, flags *pflag.FlagSet) *Loader {
	if path == "" {
		path = DefaultPath()
	}
	return &Loader{path: ExpandPath(path), flags: flags}
}

// Path returns the resolved config path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads and parses the config file.
func (l *Loader) Load() (*Config, error) {
	raw, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found: "+l.path,
				"Create it, or point at another file with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file: "+l.path,
			"Check the file permissions")
	}
	return Parse(raw, l.path, l.flags)
}

// Parse builds a Config from file contents. The extension of path picks the
// syntax: .json and .jsonc may carry comments and trailing commas, anything
// else is YAML.
func Parse(raw []byte, path string, flags *pflag.FlagSet) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		var compact bytes.Buffer
		if err := json.Compact(&compact, jsonc.ToJSON(raw)); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Invalid JSON in "+path,
				"Check for unbalanced braces or missing commas")
		}
		// Compact JSON is also valid YAML, so one parser serves both.
		raw = compact.Bytes()
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the syntax in "+path)
	}

	general, err := parseGeneral(findKey(&doc, generalKey), flags)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid general settings in "+path,
			"Check the 'general' section of your config")
	}

	snapshot, problems, err := parseBlocks(&doc, general)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the syntax in "+path)
	}

	return &Config{
		Path:     path,
		General:  general,
		Snapshot: snapshot,
		Problems: problems,
	}, nil
}

// parseGeneral reads the general section through viper so defaults,
// BARSTAT_* environment variables and CLI flags layer the usual way. Only
// the general node is handed to viper; blocks are walked separately to
// keep their order and report duplicates per entry.
func parseGeneral(node *yaml.Node, flags *pflag.FlagSet) (General, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return General{}, err
				}
			}
		}
	}

	if node != nil {
		if node.Kind != yaml.MappingNode {
			return General{}, fmt.Errorf("line %d: '%s' must be a mapping", node.Line, generalKey)
		}
		section, err := yaml.Marshal(map[string]*yaml.Node{generalKey: node})
		if err != nil {
			return General{}, err
		}
		if err := v.ReadConfig(bytes.NewReader(section)); err != nil {
			return General{}, err
		}
	}

	interval, err := ParseInterval(v.GetString("general.interval"))
	if err != nil {
		return General{}, fmt.Errorf("interval: %w", err)
	}

	general := General{
		Interval:    interval,
		TaskTimeout: interval,
		Output:      strings.ToLower(v.GetString("general.output")),
		Separator:   v.GetBool("general.separator"),
		Colors: Colors{
			Good:     v.GetString("general.colors.good"),
			Degraded: v.GetString("general.colors.degraded"),
			Bad:      v.GetString("general.colors.bad"),
		},
	}
	if raw := v.GetString("general.task_timeout"); v.IsSet("general.task_timeout") && raw != "" {
		if general.TaskTimeout, err = ParseInterval(raw); err != nil {
			return General{}, fmt.Errorf("task_timeout: %w", err)
		}
	}

	return general, ValidateGeneral(general)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.interval", DefaultInterval.String())
	v.SetDefault("general.output", OutputI3bar)
	v.SetDefault("general.separator", true)
	v.SetDefault("general.colors.good", block.DefaultGood)
	v.SetDefault("general.colors.degraded", block.DefaultDegraded)
	v.SetDefault("general.colors.bad", block.DefaultBad)
}

// parseBlocks walks the blocks mapping in document order. A malformed entry
// becomes a problem and is left out; a malformed blocks section is an error.
func parseBlocks(doc *yaml.Node, general General) (Snapshot, []error, error) {
	blocks := findKey(doc, blocksKey)
	if blocks == nil {
		return Snapshot{}, nil, nil
	}
	if blocks.Kind != yaml.MappingNode {
		return Snapshot{}, nil, fmt.Errorf("line %d: '%s' must be a mapping of instance names to settings", blocks.Line, blocksKey)
	}

	var snapshot Snapshot
	var problems []error
	seen := make(map[string]bool)

	for i := 0; i+1 < len(blocks.Content); i += 2 {
		keyNode, valueNode := blocks.Content[i], blocks.Content[i+1]
		instance := keyNode.Value

		if seen[instance] {
			problems = append(problems, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' is defined more than once (line %d)", instance, keyNode.Line),
				"Give each block a unique name; the first definition is used."))
			continue
		}
		seen[instance] = true

		entry, err := parseEntry(instance, valueNode, general)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		snapshot.Entries = append(snapshot.Entries, entry)
	}

	return snapshot, problems, nil
}

func parseEntry(instance string, node *yaml.Node, general General) (Entry, error) {
	if strings.TrimSpace(instance) == "" {
		return Entry{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("line %d: block with an empty name", node.Line),
			"Give the block a name.")
	}
	if node.Kind != yaml.MappingNode {
		return Entry{}, errors.New(errors.ErrConfig,
			fmt.Sprintf("'%s' (line %d) must be a mapping of settings", instance, node.Line),
			"Write the block as 'name:' followed by indented 'key: value' lines.")
	}

	entry := Entry{
		Instance:  instance,
		Separator: general.Separator,
		Args:      Args{"instance": instance},
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return Entry{}, errors.New(errors.ErrConfig,
				fmt.Sprintf("'%s' setting '%s' (line %d) must be a single value", instance, key, value.Line),
				"Lists and nested settings aren't supported inside a block.")
		}

		switch key {
		case KeyFunction:
			entry.Kind = strings.TrimSpace(value.Value)
		case KeyFormat:
			entry.Format = value.Value
		case KeySeparator:
			sep, err := ParseBool(value.Value)
			if err != nil {
				return Entry{}, errors.New(errors.ErrConfig,
					fmt.Sprintf("'%s' has an invalid separator: %q", instance, value.Value),
					"Set separator to true or false.")
			}
			entry.Separator = sep
		case KeyColor:
			entry.Color = strings.TrimSpace(value.Value)
		case "instance":
			// The block name is the instance; ignore attempts to override it.
		default:
			entry.Args[key] = value.Value
		}
	}

	if entry.Kind == "" {
		return Entry{}, errors.MissingField(instance, KeyFunction)
	}
	return entry, nil
}

// findKey returns the value node for key in the top-level mapping.
func findKey(doc *yaml.Node, key string) *yaml.Node {
	root := doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	return nil
}

// ParseInterval accepts a Go duration ("10s", "1m30s") or a bare number of
// seconds ("10", "2.5").
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}
