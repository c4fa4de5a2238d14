package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/harubonchi/heat-cycle-demo/internal/errors"
)

const (
	envPrefix  = "HEATCYCLE"
	envConfig  = "HEATCYCLE_CONFIG"
	configName = "heatcycle"
	configType = "toml"
)

// Config carries every tunable of the daemon. The former hard-coded
// constants of the bench scripts (port, node addresses, voltage, pacing,
// window sizes) all live here.
type Config struct {
	// Serial link
	Port              string `mapstructure:"port"`
	Baud              int    `mapstructure:"baud"`
	Session           string `mapstructure:"session"`
	ExchangeTimeoutMS int    `mapstructure:"exchange_timeout_ms"`
	// SetpointCommand selects the firmware variant of the setpoint read.
	SetpointCommand string `mapstructure:"setpoint_command"`

	// Systems. When Roster is empty a single system is synthesized from
	// the node fields below.
	Roster      string  `mapstructure:"roster"`
	ThermalNode string  `mapstructure:"thermal_node"`
	PowerNode   string  `mapstructure:"power_node"`
	Voltage     float64 `mapstructure:"voltage"`

	// Pacing and metering
	PollIntervalMS   int     `mapstructure:"poll_interval_ms"`
	TickMS           int     `mapstructure:"tick_ms"`
	WindowSeconds    int     `mapstructure:"window_seconds"`
	RetentionSeconds int     `mapstructure:"retention_seconds"`
	StableSeconds    int     `mapstructure:"stable_seconds"`
	StableTolerance  float64 `mapstructure:"stable_tolerance"`
	QueueDepth       int     `mapstructure:"queue_depth"`

	// Persistence
	Recorder bool   `mapstructure:"recorder"`
	Database string `mapstructure:"database"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from flags, environment and the TOML config
// file, in rising precedence: defaults, file, HEATCYCLE_* environment,
// flags.
func Load() (*Config, error) {
	errFactory := errors.New()

	flags := pflag.NewFlagSet("heatcycled", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.String("config", "", "Explicit config file path")
	flags.String("log-level", "", "Log level: debug, info, warning or error")
	flags.String("port", "", "Serial device path")
	flags.String("roster", "", "Systems roster file path")
	flags.Bool("recorder", false, "Persist readings to the database")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	configFile, _ := flags.GetString("config")
	if configFile == "" {
		configFile = os.Getenv(envConfig)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errFactory.Wrap(errors.ErrReadConfig, err)
			}
		}
	}

	// Explicitly set flags override file and environment values.
	flags.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "/dev/ttyUSB0")
	v.SetDefault("baud", 9600)
	v.SetDefault("session", "0")
	v.SetDefault("exchange_timeout_ms", 250)
	v.SetDefault("setpoint_command", "")

	v.SetDefault("roster", "")
	v.SetDefault("thermal_node", "01")
	v.SetDefault("power_node", "02")
	v.SetDefault("voltage", 200.0)

	v.SetDefault("poll_interval_ms", 500)
	v.SetDefault("tick_ms", 120)
	v.SetDefault("window_seconds", 60)
	v.SetDefault("retention_seconds", 120)
	v.SetDefault("stable_seconds", 30)
	v.SetDefault("stable_tolerance", 25.0)
	v.SetDefault("queue_depth", 256)

	v.SetDefault("recorder", false)
	v.SetDefault("database", "/var/lib/heatcycled/readings.db")

	v.SetDefault("log_level", DefaultLogLevel)
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if !LogLevel(c.LogLevel).IsValid() {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if c.Port == "" {
		return errFactory.WithData(errors.ErrMissingConfig, "port")
	}

	if c.Baud <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{Field: "baud", Value: c.Baud})
	}

	if len(c.Session) != 1 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value string
		}{Field: "session", Value: c.Session})
	}

	if c.ExchangeTimeoutMS <= 0 || c.PollIntervalMS <= 0 || c.TickMS <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, struct {
			ExchangeTimeoutMS int
			PollIntervalMS    int
			TickMS            int
		}{c.ExchangeTimeoutMS, c.PollIntervalMS, c.TickMS})
	}

	if c.WindowSeconds <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{Field: "window_seconds", Value: c.WindowSeconds})
	}

	if c.RetentionSeconds < c.WindowSeconds {
		return errFactory.WithMessage(errors.ErrInvalidConfig,
			"Retention must cover at least the integration window")
	}

	if c.Voltage <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value float64
		}{Field: "voltage", Value: c.Voltage})
	}

	if c.StableSeconds <= 0 || c.StableTolerance < 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			StableSeconds   int
			StableTolerance float64
		}{c.StableSeconds, c.StableTolerance})
	}

	if c.QueueDepth <= 0 {
		return errFactory.WithData(errors.ErrInvalidConfig, struct {
			Field string
			Value int
		}{Field: "queue_depth", Value: c.QueueDepth})
	}

	return nil
}

func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.ExchangeTimeoutMS) * time.Millisecond
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

func (c *Config) Tick() time.Duration {
	return time.Duration(c.TickMS) * time.Millisecond
}

func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionSeconds) * time.Second
}

func (c *Config) StableDuration() time.Duration {
	return time.Duration(c.StableSeconds) * time.Second
}
