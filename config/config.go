// Package config loads the quirkd daemon configuration: a YAML file plus
// QUIRKD_* environment overrides. The controller identity table and the
// registry capacity are compiled in and deliberately absent here.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"irqhook-go/errcode"
)

// Config is everything quirkd accepts from the outside.
type Config struct {
	Listen            string        `mapstructure:"listen"`
	SysfsRoot         string        `mapstructure:"sysfs_root"`
	ProcInterrupts    string        `mapstructure:"proc_interrupts"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	LogLevel          string        `mapstructure:"log_level"`
	Endpoint          string        `mapstructure:"endpoint"`
}

// Load reads path (optional; "" means defaults + environment only).
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":9167")
	v.SetDefault("sysfs_root", "/sys/bus/pci/devices")
	v.SetDefault("proc_interrupts", "/proc/interrupts")
	v.SetDefault("poll_interval", "50ms")
	v.SetDefault("heartbeat_interval", "30s")
	v.SetDefault("log_level", "info")
	v.SetDefault("endpoint", "irqhook")

	v.SetEnvPrefix("QUIRKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Msg: path, Err: err}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, &errcode.E{C: errcode.InvalidParams, Op: "config.load", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the daemon cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Listen == "":
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "listen must not be empty"}
	case c.SysfsRoot == "":
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "sysfs_root must not be empty"}
	case c.ProcInterrupts == "":
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "proc_interrupts must not be empty"}
	case c.PollInterval <= 0:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "poll_interval must be positive"}
	case c.HeartbeatInterval <= 0:
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "heartbeat_interval must be positive"}
	case c.Endpoint == "" || strings.Contains(c.Endpoint, "/"):
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "endpoint must be a single path segment"}
	}
	return nil
}
