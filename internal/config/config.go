package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a Go duration string ("90s", "1h").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	if parsed < 0 {
		return fmt.Errorf("duration %q must not be negative", string(text))
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type ParserConfig struct {
	TimeLayout string `toml:"time_layout"`
}

type ReportConfig struct {
	Format          string `toml:"format"`
	SuppressLogging bool   `toml:"suppress_logging"`
	Workers         int    `toml:"workers"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type DaemonConfig struct {
	Record     *bool  `toml:"record"`
	RecordPath string `toml:"record_path"`
	// RecordLayout is the timestamp layout the recorder writes and the
	// engine parses. It carries the date so sessions may cross midnight.
	RecordLayout string   `toml:"record_layout"`
	Sources      []string `toml:"sources"`
	StatePath    string   `toml:"state_path"`
	Interval     Duration `toml:"interval"`
	Retention    Duration `toml:"retention"`
	HTTPAddr     string   `toml:"http_addr"`
	Watch        *bool    `toml:"watch"`
}

type Config struct {
	Parser ParserConfig `toml:"parser"`
	Report ReportConfig `toml:"report"`
	Log    LogConfig    `toml:"log"`
	Daemon DaemonConfig `toml:"daemon"`
}

const (
	DefaultTimeLayout   = "15:04:05"
	DefaultRecordLayout = time.DateTime
	DefaultRecordPath   = "/var/lib/sessiontally/sessions.log"
	DefaultStatePath    = "/var/lib/sessiontally/state.json"
)

// SetDefault fills every unset value.
func (c *Config) SetDefault() {
	if c.Parser.TimeLayout == "" {
		c.Parser.TimeLayout = DefaultTimeLayout
	}
	if c.Report.Format == "" {
		c.Report.Format = "text"
	}
	if c.Report.Workers <= 0 {
		c.Report.Workers = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.Daemon.Record == nil {
		defaultVal := true
		c.Daemon.Record = &defaultVal
	}
	if c.Daemon.Watch == nil {
		defaultVal := true
		c.Daemon.Watch = &defaultVal
	}
	if c.Daemon.RecordPath == "" {
		c.Daemon.RecordPath = DefaultRecordPath
	}
	if c.Daemon.RecordLayout == "" {
		c.Daemon.RecordLayout = DefaultRecordLayout
	}
	if len(c.Daemon.Sources) == 0 {
		c.Daemon.Sources = []string{c.Daemon.RecordPath}
	}
	if c.Daemon.StatePath == "" {
		c.Daemon.StatePath = DefaultStatePath
	}
	if c.Daemon.Interval == 0 {
		c.Daemon.Interval = Duration(time.Minute)
	}
	if c.Daemon.Retention == 0 {
		c.Daemon.Retention = Duration(30 * 24 * time.Hour)
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	c := &Config{}
	c.SetDefault()
	return c
}

// LoadConfigFromFile reads a TOML config. The file is created empty if it
// does not exist.
func LoadConfigFromFile(path string) (*Config, error) {
	file, err := os.OpenFile(path, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := toml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	config.SetDefault()
	return &config, nil
}

// LoadOptional is LoadConfigFromFile without creating the file; a missing
// file yields the defaults.
func LoadOptional(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return LoadConfigFromBytes(data)
}

func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.SetDefault()
	return &config, nil
}
