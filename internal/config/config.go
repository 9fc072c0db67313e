package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"hwgauge/internal/errors"
	"hwgauge/kernel"
	"hwgauge/render"
)

// EnvPrefix prefixes every environment override, e.g. HWGAUGE_LINK_PORT.
const EnvPrefix = "HWGAUGE"

// Name is the config file base name, without extension.
const Name = "hwgauge"

type Config struct {
	Link    LinkConfig    `mapstructure:"link"`
	Sample  SampleConfig  `mapstructure:"sample"`
	Render  RenderConfig  `mapstructure:"render"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type LinkConfig struct {
	// Port overrides USB auto-detection when set.
	Port             string        `mapstructure:"port"`
	VID              int           `mapstructure:"vid"`
	PID              int           `mapstructure:"pid"`
	Baud             int           `mapstructure:"baud"`
	Retry            time.Duration `mapstructure:"retry"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type SampleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// DayStart and DayEnd bound the local hours, [start, end), in which the
	// gauge draws dark on light.
	DayStart int `mapstructure:"day_start"`
	DayEnd   int `mapstructure:"day_end"`
}

type RenderConfig struct {
	FPS         int           `mapstructure:"fps"`
	FallRate    int           `mapstructure:"fall_rate"`
	Hold        time.Duration `mapstructure:"hold"`
	NoDataAfter time.Duration `mapstructure:"no_data_after"`
	BlankAfter  time.Duration `mapstructure:"blank_after"`
}

type LogConfig struct {
	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

type MetricsConfig struct {
	// Addr is the listen address for /metrics; empty disables it.
	Addr string `mapstructure:"addr"`
}

// Default returns the compiled defaults.
func Default() Config {
	k := kernel.DefaultConfig()
	return Config{
		Link: LinkConfig{
			VID:              0x1209,
			PID:              0x0001,
			Baud:             115200,
			Retry:            10 * time.Second,
			HandshakeTimeout: 2 * time.Second,
		},
		Sample: SampleConfig{
			Interval: time.Second,
			DayStart: 6,
			DayEnd:   18,
		},
		Render: RenderConfig{
			FPS:         k.Render.FPS,
			FallRate:    k.Render.FallRate,
			Hold:        k.Render.HoldFor,
			NoDataAfter: k.NoDataAfter,
			BlankAfter:  k.BlankAfter,
		},
		Metrics: MetricsConfig{Addr: "localhost:9731"},
	}
}

// Kernel converts the render section into scheduler settings.
func (c RenderConfig) Kernel() kernel.Config {
	return kernel.Config{
		Render: render.Config{
			FPS:      c.FPS,
			FallRate: c.FallRate,
			HoldFor:  c.Hold,
		},
		NoDataAfter: c.NoDataAfter,
		BlankAfter:  c.BlankAfter,
	}
}

// flag name -> config key
var flagKeys = map[string]string{
	"port":              "link.port",
	"vid":               "link.vid",
	"pid":               "link.pid",
	"baud":              "link.baud",
	"retry":             "link.retry",
	"handshake-timeout": "link.handshake_timeout",
	"interval":          "sample.interval",
	"day-start":         "sample.day_start",
	"day-end":           "sample.day_end",
	"fps":               "render.fps",
	"fall-rate":         "render.fall_rate",
	"hold":              "render.hold",
	"no-data-after":     "render.no_data_after",
	"blank-after":       "render.blank_after",
	"debug":             "log.debug",
	"verbose":           "log.verbose",
	"metrics-addr":      "metrics.addr",
}

func registerFlags(fs *pflag.FlagSet, d Config) {
	fs.String("config", "", "Path to a TOML config file")

	fs.String("port", d.Link.Port, "Serial port of the gauge (default: detect by USB id)")
	fs.Int("vid", d.Link.VID, "USB vendor id to detect")
	fs.Int("pid", d.Link.PID, "USB product id to detect")
	fs.Int("baud", d.Link.Baud, "Serial baud rate")
	fs.Duration("retry", d.Link.Retry, "Delay between detection attempts")
	fs.Duration("handshake-timeout", d.Link.HandshakeTimeout, "How long to wait for the handshake reply")

	fs.Duration("interval", d.Sample.Interval, "Time between samples")
	fs.Int("day-start", d.Sample.DayStart, "First daytime hour (inverted display)")
	fs.Int("day-end", d.Sample.DayEnd, "First night hour")

	fs.Int("fps", d.Render.FPS, "Render ticks per second")
	fs.Int("fall-rate", d.Render.FallRate, "Bar falloff in percent per second")
	fs.Duration("hold", d.Render.Hold, "How long bars hold before falling")
	fs.Duration("no-data-after", d.Render.NoDataAfter, "Show the no-data screen after this much silence")
	fs.Duration("blank-after", d.Render.BlankAfter, "Blank the display after this much silence")

	fs.Bool("debug", d.Log.Debug, "Enable debugging mode")
	fs.Bool("verbose", d.Log.Verbose, "Enable verbose logging")

	fs.String("metrics-addr", d.Metrics.Addr, "Listen address for /metrics (empty disables)")
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("link.port", d.Link.Port)
	v.SetDefault("link.vid", d.Link.VID)
	v.SetDefault("link.pid", d.Link.PID)
	v.SetDefault("link.baud", d.Link.Baud)
	v.SetDefault("link.retry", d.Link.Retry)
	v.SetDefault("link.handshake_timeout", d.Link.HandshakeTimeout)
	v.SetDefault("sample.interval", d.Sample.Interval)
	v.SetDefault("sample.day_start", d.Sample.DayStart)
	v.SetDefault("sample.day_end", d.Sample.DayEnd)
	v.SetDefault("render.fps", d.Render.FPS)
	v.SetDefault("render.fall_rate", d.Render.FallRate)
	v.SetDefault("render.hold", d.Render.Hold)
	v.SetDefault("render.no_data_after", d.Render.NoDataAfter)
	v.SetDefault("render.blank_after", d.Render.BlankAfter)
	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.verbose", d.Log.Verbose)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// Load parses args, reads the config file and HWGAUGE_* environment
// variables, and returns the validated result. Explicit flags win over
// the environment, which wins over the file. extra, if not nil, registers
// additional program flags on the same set before parsing.
func Load(name string, args []string, extra func(fs *pflag.FlagSet)) (*Config, error) {
	errs := errors.New()
	d := Default()

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	registerFlags(fs, d)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return nil, errs.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v, d)
	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, errs.Wrap(errors.ErrBindFlags, err).WithData(flagName)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file, _ := fs.GetString("config")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(Name)
		v.SetConfigType("toml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || file != "" {
			return nil, errs.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errs.Wrap(errors.ErrReadConfig, err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, Name))
	} else if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", Name))
	}
	return append(dirs, filepath.Join("/etc", Name), "/etc")
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	errs := errors.New()

	switch {
	case c.Sample.Interval <= 0:
		return errs.WithData(errors.ErrInvalidInterval, c.Sample.Interval)
	case c.Link.Retry <= 0:
		return errs.WithData(errors.ErrInvalidInterval, c.Link.Retry)
	case c.Link.HandshakeTimeout <= 0:
		return errs.WithData(errors.ErrInvalidInterval, c.Link.HandshakeTimeout)
	}

	if c.Link.Baud <= 0 {
		return errs.WithData(errors.ErrInvalidConfig, "baud must be positive")
	}
	if c.Link.VID < 0 || c.Link.VID > 0xFFFF || c.Link.PID < 0 || c.Link.PID > 0xFFFF {
		return errs.WithData(errors.ErrInvalidConfig, "usb ids must fit in 16 bits")
	}

	s := c.Sample
	if s.DayStart < 0 || s.DayStart > 24 || s.DayEnd < 0 || s.DayEnd > 24 || s.DayStart > s.DayEnd {
		return errs.WithData(errors.ErrInvalidHours, [2]int{s.DayStart, s.DayEnd})
	}

	r := c.Render
	switch {
	case r.FPS < 1 || r.FPS > 60:
		return errs.WithMessage(errors.ErrInvalidRender, "fps must be within 1..60")
	case r.FallRate <= 0:
		return errs.WithMessage(errors.ErrInvalidRender, "fall rate must be positive")
	case r.Hold < 0:
		return errs.WithMessage(errors.ErrInvalidRender, "hold must not be negative")
	case r.NoDataAfter <= 0 || r.BlankAfter < r.NoDataAfter:
		return errs.WithMessage(errors.ErrInvalidRender, "need 0 < no_data_after <= blank_after")
	}
	return nil
}
