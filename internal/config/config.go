package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

const (
	TransportUDP  = "udp"
	TransportQUIC = "quic"

	DefaultListen    = ":9000"
	DefaultOutputDir = "received_images"
	DefaultLogFile   = "imagereceiver.log"
)

// Config is the on-disk receiver configuration. Every field can be
// overridden by a command-line flag.
type Config struct {
	Transport string         `yaml:"transport"`
	Listen    string         `yaml:"listen"`
	OutputDir string         `yaml:"output_dir"`
	Once      bool           `yaml:"once"`
	Transfer  TransferConfig `yaml:"transfer"`
	NATS      NATSConfig     `yaml:"nats"`
	Redis     RedisConfig    `yaml:"redis"`
	MDNS      MDNSConfig     `yaml:"mdns"`
	Log       LogConfig      `yaml:"log"`
}

// TransferConfig mirrors transfer.TransferConfig with the timeout written as
// a duration string ("30s").
type TransferConfig struct {
	PacketSize     int    `yaml:"packet_size"`
	MaxPayloadSize int    `yaml:"max_payload_size"`
	SessionTimeout string `yaml:"session_timeout"`
	QueueSize      int    `yaml:"queue_size"`
	MaxImageSize   uint32 `yaml:"max_image_size"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type RedisConfig struct {
	Addr  string `yaml:"addr"`
	Key   string `yaml:"key"`
	Limit int64  `yaml:"limit"`
}

type MDNSConfig struct {
	Announce bool   `yaml:"announce"`
	Name     string `yaml:"name"`
}

type LogConfig struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	tc := transfer.DefaultTransferConfig()
	return &Config{
		Transport: TransportUDP,
		Listen:    DefaultListen,
		OutputDir: DefaultOutputDir,
		Transfer: TransferConfig{
			PacketSize:     tc.PacketSize,
			MaxPayloadSize: tc.MaxPayloadSize,
			SessionTimeout: tc.SessionTimeout.String(),
			QueueSize:      tc.QueueSize,
			MaxImageSize:   tc.MaxImageSize,
		},
		Log: LogConfig{File: DefaultLogFile},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that are not covered by
// transfer.TransferConfig.Validate.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportUDP, TransportQUIC:
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportUDP, TransportQUIC)
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	if c.OutputDir == "" {
		return errors.New("output directory is required")
	}
	_, err := c.TransferConfig()
	return err
}

// TransferConfig converts the transfer section into the runtime form.
func (c *Config) TransferConfig() (*transfer.TransferConfig, error) {
	timeout, err := time.ParseDuration(c.Transfer.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: session_timeout: %v", transfer.ErrInvalidConfiguration, err)
	}
	tc := &transfer.TransferConfig{
		PacketSize:     c.Transfer.PacketSize,
		MaxPayloadSize: c.Transfer.MaxPayloadSize,
		SessionTimeout: timeout,
		QueueSize:      c.Transfer.QueueSize,
		MaxImageSize:   c.Transfer.MaxImageSize,
	}
	if err := tc.Validate(); err != nil {
		return nil, err
	}
	return tc, nil
}

// Marshal renders the configuration as YAML, e.g. for a starter file.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
