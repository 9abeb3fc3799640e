// Package config holds the settings shared by the mantx commands.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/mantx/pkg/framer"
	"github.com/robotalks/mantx/pkg/line"
	"github.com/robotalks/mantx/pkg/manchester"
	"github.com/robotalks/mantx/pkg/transmitter"
)

// EnvMQTTURL overrides the default MQTT broker URL.
const EnvMQTTURL = "MANTX_MQTT_URL"

// ErrInvalid indicates an invalid configuration.
var ErrInvalid = errors.New("invalid config")

// Config defines the configurations of a transmitter node.
type Config struct {
	// Standard is the Manchester standard, "ieee" or "thomas".
	Standard string `toml:"standard"`
	// TickIntervalUS is the bit period in microseconds.
	TickIntervalUS int `toml:"tick_interval_us"`
	// Preamble is the preamble as a string of '0' and '1'.
	Preamble   string `toml:"preamble"`
	StopBits   int    `toml:"stop_bits"`
	MaxPayload int    `toml:"max_payload"`

	// DeviceID names the node in MQTT topics.
	DeviceID string `toml:"device_id"`
	// MQTTBrokerURL specifies the MQTT broker to use, empty to disable.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string `toml:"mqtt_url"`
	// SerialDevice is the path of the host link, empty to disable.
	SerialDevice string `toml:"serial_device"`
	// MetricsAddr is the listen address of /metrics, empty to disable.
	MetricsAddr string `toml:"metrics_addr"`
}

var defaultConfig = Config{
	Standard:       manchester.IEEE.String(),
	TickIntervalUS: 104,
	Preamble:       line.FormatLevels(framer.DefaultPreamble),
	StopBits:       framer.DefaultStopBits,
	MaxPayload:     transmitter.DefaultMaxPayload,
	DeviceID:       "mantx",
	MQTTBrokerURL:  "mqtt://localhost:1883/mantx/",
}

func init() {
	if val := os.Getenv(EnvMQTTURL); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if id, err := machineid.ProtectedID("mantx"); err == nil {
		defaultConfig.DeviceID = id[:12]
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	setupFlags(flag.CommandLine, &defaultConfig)
}

func setupFlags(fs *flag.FlagSet, c *Config) {
	fs.StringVar(&c.Standard, "standard", c.Standard, "Manchester standard: ieee or thomas")
	fs.IntVar(&c.TickIntervalUS, "tick-us", c.TickIntervalUS, "Bit period in microseconds")
	fs.StringVar(&c.Preamble, "preamble", c.Preamble, "Preamble bits")
	fs.IntVar(&c.StopBits, "stop-bits", c.StopBits, "Number of low stop bits")
	fs.IntVar(&c.MaxPayload, "max-payload", c.MaxPayload, "Maximum payload bytes")
	fs.StringVar(&c.DeviceID, "id", c.DeviceID, "Device ID")
	fs.StringVar(&c.MQTTBrokerURL, "mqtt", c.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	fs.StringVar(&c.SerialDevice, "serial", c.SerialDevice, "Host link device path")
	fs.StringVar(&c.MetricsAddr, "metrics", c.MetricsAddr, "Metrics listen address")
}

// flagFields copies the field behind each flag.
var flagFields = map[string]func(dst, src *Config){
	"standard":    func(dst, src *Config) { dst.Standard = src.Standard },
	"tick-us":     func(dst, src *Config) { dst.TickIntervalUS = src.TickIntervalUS },
	"preamble":    func(dst, src *Config) { dst.Preamble = src.Preamble },
	"stop-bits":   func(dst, src *Config) { dst.StopBits = src.StopBits },
	"max-payload": func(dst, src *Config) { dst.MaxPayload = src.MaxPayload },
	"id":          func(dst, src *Config) { dst.DeviceID = src.DeviceID },
	"mqtt":        func(dst, src *Config) { dst.MQTTBrokerURL = src.MQTTBrokerURL },
	"serial":      func(dst, src *Config) { dst.SerialDevice = src.SerialDevice },
	"metrics":     func(dst, src *Config) { dst.MetricsAddr = src.MetricsAddr },
}

// LoadFile creates a Config from the defaults, overridden by the TOML
// file at path (if not empty), overridden by the flags set on the
// command line. It must be called after flag.Parse.
func LoadFile(path string) (*Config, error) {
	return loadFile(path, flag.CommandLine, &defaultConfig)
}

func loadFile(path string, fs *flag.FlagSet, flagged *Config) (*Config, error) {
	conf := *flagged
	if path == "" {
		return &conf, nil
	}
	if err := conf.Load(path); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if apply, ok := flagFields[f.Name]; ok {
			apply(&conf, flagged)
		}
	})
	return &conf, nil
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load reads a TOML file over c. Unknown keys are rejected.
func (c *Config) Load(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for n, key := range undecoded {
			keys[n] = key.String()
		}
		return fmt.Errorf("%w: %s: unknown keys %s", ErrInvalid, path, strings.Join(keys, ", "))
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if _, err := manchester.ParseStandard(c.Standard); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.TickIntervalUS <= 0 {
		return fmt.Errorf("%w: tick interval %dus", ErrInvalid, c.TickIntervalUS)
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("%w: max payload %d", ErrInvalid, c.MaxPayload)
	}
	if c.DeviceID == "" || strings.ContainsAny(c.DeviceID, "/+#") {
		return fmt.Errorf("%w: device id %q", ErrInvalid, c.DeviceID)
	}
	fc, err := c.FramerConfig()
	if err != nil {
		return err
	}
	return fc.Validate()
}

// TickInterval returns the bit period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalUS) * time.Microsecond
}

// FramerConfig converts to framer.Config.
func (c *Config) FramerConfig() (framer.Config, error) {
	preamble, err := line.ParseLevels(c.Preamble)
	if err != nil {
		return framer.Config{}, fmt.Errorf("%w: preamble: %v", ErrInvalid, err)
	}
	return framer.Config{Preamble: preamble, StopBits: c.StopBits}, nil
}

// TransmitterConfig converts to transmitter.Config.
func (c *Config) TransmitterConfig(observer transmitter.Observer) (transmitter.Config, error) {
	if err := c.Validate(); err != nil {
		return transmitter.Config{}, err
	}
	std, _ := manchester.ParseStandard(c.Standard)
	fc, _ := c.FramerConfig()
	return transmitter.Config{
		Standard:   std,
		MaxPayload: c.MaxPayload,
		Framer:     fc,
		Observer:   observer,
	}, nil
}
