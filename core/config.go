package core

import "encoding/json"

// PinsConfig selects the signal pins.
type PinsConfig struct {
	Toggle  GPIOPin `json:"toggle" yaml:"toggle"`
	Reading GPIOPin `json:"reading" yaml:"reading"`

	// RefClock is the pin for the PIO reference square wave on targets that
	// have one; negative disables it.
	RefClock int `json:"ref_clock" yaml:"ref_clock"`
}

// TimerSettings configures the periodic timer.
type TimerSettings struct {
	ResolutionHz uint32 `json:"resolution_hz" yaml:"resolution_hz"`
	AlarmTicks   uint64 `json:"alarm_ticks" yaml:"alarm_ticks"`
	IntrPriority uint8  `json:"intr_priority" yaml:"intr_priority"`
	LatencyProbe bool   `json:"latency_probe" yaml:"latency_probe"`
}

// ReaderConfig configures the foreground read loop.
type ReaderConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Path       string `json:"path" yaml:"path"`
	IntervalMS uint32 `json:"interval_ms" yaml:"interval_ms"`

	// SeedSize writes a file of this many bytes at Path after mount if it
	// is missing. Zero leaves the filesystem untouched.
	SeedSize int `json:"seed_size" yaml:"seed_size"`
}

// Config is the complete harness configuration.
type Config struct {
	Mount     MountConfig   `json:"mount" yaml:"mount"`
	Pins      PinsConfig    `json:"pins" yaml:"pins"`
	Timer     TimerSettings `json:"timer" yaml:"timer"`
	Reader    ReaderConfig  `json:"reader" yaml:"reader"`
	Telemetry bool          `json:"telemetry" yaml:"telemetry"`
}

// ConfigError names the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Field + ": " + e.Reason
}

// DefaultConfig returns the reference harness: 1 MHz counter with a 50 tick
// alarm (10 kHz square wave on GPIO14), /logo.png read once a second with
// GPIO13 high while reading.
func DefaultConfig() Config {
	return Config{
		Mount: MountConfig{
			BasePath:            "",
			PartitionLabel:      "",
			MaxFiles:            5,
			FormatIfMountFailed: true,
		},
		Pins: PinsConfig{
			Toggle:   14,
			Reading:  13,
			RefClock: -1,
		},
		Timer: TimerSettings{
			ResolutionHz: 1000000,
			AlarmTicks:   50,
			IntrPriority: 3,
		},
		Reader: ReaderConfig{
			Enabled:    true,
			Path:       "/logo.png",
			IntervalMS: 1000,
		},
	}
}

// LoadConfig parses JSON over DefaultConfig, so omitted fields keep their
// defaults, then fills any zeroed fields.
func LoadConfig(jsonData []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := json.Unmarshal(jsonData, &cfg); err != nil {
		return Config{}, err
	}
	ApplyDefaults(&cfg)
	return cfg, nil
}

// ApplyDefaults fills zero values that are never valid with their defaults.
func ApplyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Mount.MaxFiles == 0 {
		cfg.Mount.MaxFiles = def.Mount.MaxFiles
	}
	if cfg.Timer.ResolutionHz == 0 {
		cfg.Timer.ResolutionHz = def.Timer.ResolutionHz
	}
	if cfg.Timer.AlarmTicks == 0 {
		cfg.Timer.AlarmTicks = def.Timer.AlarmTicks
	}
	if cfg.Reader.Path == "" {
		cfg.Reader.Path = def.Reader.Path
	}
	if cfg.Reader.IntervalMS == 0 {
		cfg.Reader.IntervalMS = def.Reader.IntervalMS
	}
}

// Validate checks the configuration before any hardware is touched.
func (c *Config) Validate() error {
	switch {
	case c.Mount.MaxFiles < 1:
		return &ConfigError{"mount.max_files", "must be at least 1"}
	case c.Pins.Toggle > MaxGPIOPin:
		return &ConfigError{"pins.toggle", "out of range"}
	case c.Pins.Reading > MaxGPIOPin:
		return &ConfigError{"pins.reading", "out of range"}
	case c.Pins.Toggle == c.Pins.Reading:
		return &ConfigError{"pins", "toggle and reading pins must differ"}
	case c.Pins.RefClock >= 0 && (GPIOPin(c.Pins.RefClock) == c.Pins.Toggle || GPIOPin(c.Pins.RefClock) == c.Pins.Reading):
		return &ConfigError{"pins.ref_clock", "collides with a signal pin"}
	case c.Timer.ResolutionHz == 0:
		return &ConfigError{"timer.resolution_hz", "must be positive"}
	case c.Timer.AlarmTicks == 0:
		return &ConfigError{"timer.alarm_ticks", "must be positive"}
	case c.Timer.IntrPriority > 3:
		return &ConfigError{"timer.intr_priority", "must be 0 to 3"}
	case c.Reader.Path == "":
		return &ConfigError{"reader.path", "must be set"}
	case c.Reader.IntervalMS == 0:
		return &ConfigError{"reader.interval_ms", "must be positive"}
	case c.Reader.SeedSize < 0:
		return &ConfigError{"reader.seed_size", "must not be negative"}
	}
	return nil
}
