package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/blacktop/cimage"
	"github.com/blacktop/cimage/pkg/overlay"
)

// BundledSource names the embedded default configuration
const BundledSource = "bundled default"

//go:embed default_config.toml
var defaultTOML []byte

type Config struct {
	Keys     KeysConfig     `mapstructure:"keys"`
	Overlay  OverlayConfig  `mapstructure:"overlay"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Session  SessionConfig  `mapstructure:"session"`
}

type KeysConfig struct {
	MoveImageLeft  string `mapstructure:"move_image_left"`
	MoveImageRight string `mapstructure:"move_image_right"`
	MoveImageUp    string `mapstructure:"move_image_up"`
	MoveImageDown  string `mapstructure:"move_image_down"`
	NextImage      string `mapstructure:"next_image"`
	PreviousImage  string `mapstructure:"previous_image"`
	ZoomIn         string `mapstructure:"zoom_in"`
	ZoomOut        string `mapstructure:"zoom_out"`
	Reset          string `mapstructure:"reset"`
	QuitProgram    string `mapstructure:"quit_program"`
}

type OverlayConfig struct {
	Protocol             string `mapstructure:"protocol"`
	Scaler               string `mapstructure:"scaler"`
	Transfer             string `mapstructure:"transfer"`
	Compression          bool   `mapstructure:"compression"`
	ZIndex               int    `mapstructure:"z_index"`
	SixelColors          int    `mapstructure:"sixel_colors"`
	SixelOptimizePalette bool   `mapstructure:"sixel_optimize_palette"`
	CacheSize            int    `mapstructure:"cache_size"`
}

type ResolverConfig struct {
	Extensions []string `mapstructure:"extensions"`
}

type SessionConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

// Error is an invalid or unreadable configuration
type Error struct {
	Source string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid configuration (%s): %s: %v", e.Source, e.Key, e.Err)
	}
	return fmt.Sprintf("invalid configuration (%s): %v", e.Source, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Options control where configuration is read from
type Options struct {
	// Path is an explicit user file; it must exist
	Path string
	// NoConfig ignores user files and uses only the bundled default
	NoConfig bool
}

// DefaultPath returns the per-user configuration file location
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cimage", "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cimage", "config.toml"), nil
}

// Default returns the bundled default configuration
func Default() (*Config, error) {
	cfg, _, err := Load(Options{NoConfig: true})
	return cfg, err
}

// Load reads the bundled default, merges the user file on top and applies
// CIMAGE_* environment overrides. It returns the configuration and the file it
// was read from.
func Load(opts Options) (*Config, string, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(defaultTOML)); err != nil {
		return nil, "", &Error{Source: BundledSource, Err: err}
	}
	known := make(map[string]bool)
	for _, k := range v.AllKeys() {
		known[k] = true
	}

	source := BundledSource
	if !opts.NoConfig {
		path, err := userFile(opts.Path)
		if err != nil {
			return nil, "", err
		}
		if path != "" {
			v.SetConfigFile(path)
			if err := v.MergeInConfig(); err != nil {
				return nil, "", &Error{Source: path, Err: fmt.Errorf("reading config: %w", err)}
			}
			source = path

			if err := checkKeys(v); err != nil {
				err.Source = source
				return nil, "", err
			}
			var unknown []string
			for _, k := range v.AllKeys() {
				if !known[k] {
					unknown = append(unknown, k)
				}
			}
			if len(unknown) > 0 {
				sort.Strings(unknown)
				return nil, "", &Error{Source: source, Key: unknown[0], Err: errors.New("unknown key")}
			}
		}
	}

	v.SetEnvPrefix("CIMAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", &Error{Source: source, Err: fmt.Errorf("unmarshaling config: %w", err)}
	}
	if err := cfg.Validate(); err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Source = source
		}
		return nil, "", err
	}
	return &cfg, source, nil
}

func userFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &Error{Source: explicit, Err: err}
		}
		return explicit, nil
	}
	path, err := DefaultPath()
	if err != nil {
		// no home directory means no user file
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", nil
	}
	return path, nil
}

// checkKeys rejects [keys] entries that name no command or are not strings
func checkKeys(v *viper.Viper) *Error {
	keys := v.AllKeys()
	sort.Strings(keys)
	for _, k := range keys {
		name, ok := strings.CutPrefix(k, "keys.")
		if !ok {
			continue
		}
		if _, err := cimage.ParseCommand(name); err != nil {
			return &Error{Key: k, Err: err}
		}
		if raw := v.Get(k); !isString(raw) {
			return &Error{Key: k, Err: fmt.Errorf("must be a string, got %v", raw)}
		}
	}
	return nil
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func (k KeysConfig) byCommand() map[cimage.Command]string {
	return map[cimage.Command]string{
		cimage.MoveImageLeft:  k.MoveImageLeft,
		cimage.MoveImageRight: k.MoveImageRight,
		cimage.MoveImageUp:    k.MoveImageUp,
		cimage.MoveImageDown:  k.MoveImageDown,
		cimage.NextImage:      k.NextImage,
		cimage.PreviousImage:  k.PreviousImage,
		cimage.ZoomIn:         k.ZoomIn,
		cimage.ZoomOut:        k.ZoomOut,
		cimage.Reset:          k.Reset,
		cimage.QuitProgram:    k.QuitProgram,
	}
}

// Bindings converts the [keys] section to key bindings
func (k KeysConfig) Bindings() (cimage.KeyBindings, error) {
	keys := k.byCommand()
	kb := make(cimage.KeyBindings)
	for _, cmd := range cimage.Commands() {
		key := keys[cmd]
		field := "keys." + cmd.String()
		if utf8.RuneCountInString(key) != 1 {
			return nil, &Error{Key: field, Err: fmt.Errorf("must be exactly one character, got %q", key)}
		}
		r, _ := utf8.DecodeRuneInString(key)
		if r == cimage.Escape && cmd != cimage.QuitProgram {
			return nil, &Error{Key: field, Err: errors.New("escape is reserved for quit_program")}
		}
		if other, dup := kb[r]; dup {
			return nil, &Error{Key: field, Err: fmt.Errorf("%q is already bound to %s", key, other)}
		}
		kb[r] = cmd
	}
	return kb, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if _, err := c.Keys.Bindings(); err != nil {
		return err
	}
	if _, err := overlay.ParseProtocol(c.Overlay.Protocol); err != nil {
		return &Error{Key: "overlay.protocol", Err: err}
	}
	if _, err := overlay.ParseScaler(c.Overlay.Scaler); err != nil {
		return &Error{Key: "overlay.scaler", Err: err}
	}
	if _, err := overlay.ParseTransfer(c.Overlay.Transfer); err != nil {
		return &Error{Key: "overlay.transfer", Err: err}
	}
	if c.Overlay.SixelColors < 0 || c.Overlay.SixelColors > 255 {
		return &Error{Key: "overlay.sixel_colors", Err: fmt.Errorf("must be between 0 and 255, got %d", c.Overlay.SixelColors)}
	}
	if c.Overlay.CacheSize < 1 {
		return &Error{Key: "overlay.cache_size", Err: fmt.Errorf("must be at least 1, got %d", c.Overlay.CacheSize)}
	}
	if len(c.Resolver.Extensions) == 0 {
		return &Error{Key: "resolver.extensions", Err: errors.New("must not be empty")}
	}
	for _, ext := range c.Resolver.Extensions {
		if strings.TrimPrefix(strings.TrimSpace(ext), ".") == "" {
			return &Error{Key: "resolver.extensions", Err: errors.New("empty extension")}
		}
	}
	if c.Session.TickInterval < 0 {
		return &Error{Key: "session.tick_interval", Err: fmt.Errorf("must not be negative, got %s", c.Session.TickInterval)}
	}
	return nil
}

// Protocol returns the parsed overlay protocol
func (c *Config) Protocol() overlay.Protocol {
	p, _ := overlay.ParseProtocol(c.Overlay.Protocol)
	return p
}

// Scaler returns the parsed overlay scaler
func (c *Config) Scaler() overlay.Scaler {
	s, _ := overlay.ParseScaler(c.Overlay.Scaler)
	return s
}

// Transfer returns the parsed Kitty transfer mode
func (c *Config) Transfer() overlay.Transfer {
	t, _ := overlay.ParseTransfer(c.Overlay.Transfer)
	return t
}

// Render returns the configuration as TOML
func Render(c *Config) ([]byte, error) {
	k := c.Keys
	doc := map[string]any{
		"keys": map[string]any{
			"move_image_left":  k.MoveImageLeft,
			"move_image_right": k.MoveImageRight,
			"move_image_up":    k.MoveImageUp,
			"move_image_down":  k.MoveImageDown,
			"next_image":       k.NextImage,
			"previous_image":   k.PreviousImage,
			"zoom_in":          k.ZoomIn,
			"zoom_out":         k.ZoomOut,
			"reset":            k.Reset,
			"quit_program":     k.QuitProgram,
		},
		"overlay": map[string]any{
			"protocol":               c.Overlay.Protocol,
			"scaler":                 c.Overlay.Scaler,
			"transfer":               c.Overlay.Transfer,
			"compression":            c.Overlay.Compression,
			"z_index":                c.Overlay.ZIndex,
			"sixel_colors":           c.Overlay.SixelColors,
			"sixel_optimize_palette": c.Overlay.SixelOptimizePalette,
			"cache_size":             c.Overlay.CacheSize,
		},
		"resolver": map[string]any{
			"extensions": c.Resolver.Extensions,
		},
		"session": map[string]any{
			// durations as strings for readability
			"tick_interval": c.Session.TickInterval.String(),
		},
	}
	return toml.Marshal(doc)
}

// WriteDefault writes the bundled default configuration to path. An existing
// file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s: %w (use --force to overwrite)", path, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, defaultTOML, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultTOML returns the bundled default configuration file
func DefaultTOML() []byte {
	return bytes.Clone(defaultTOML)
}
