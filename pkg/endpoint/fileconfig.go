package endpoint

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config with yaml tags, for the test-harness driver's
// file-based configuration path. Durations are expressed as strings so the
// YAML stays readable ("200ms" rather than a raw nanosecond count).
type fileConfig struct {
	MaxPacketSize      int     `yaml:"max_packet_size"`
	FragmentAbove      int     `yaml:"fragment_above"`
	FragmentSize       int     `yaml:"fragment_size"`
	MaxFragments       int     `yaml:"max_fragments"`
	AckBufferSize      int     `yaml:"ack_buffer_size"`
	SentBufferSize     int     `yaml:"sent_buffer_size"`
	RecvBufferSize     int     `yaml:"recv_buffer_size"`
	RTTSmoothing       float64 `yaml:"rtt_smoothing"`
	LossSmoothing      float64 `yaml:"loss_smoothing"`
	BandwidthSmoothing float64 `yaml:"bandwidth_smoothing"`
	ReadTimeout        string  `yaml:"read_timeout"`
	UpdateInterval     string  `yaml:"update_interval"`
}

// LoadConfigFromEnv binds a Config from environment variables using the
// `env` struct tags declared on Config, for the CLI daemon commands.
func LoadConfigFromEnv(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "endpoint: load config from environment")
	}
	return cfg.withDefaults(), nil
}

// LoadConfigFromYAML binds a Config from a YAML file, for the test-harness
// driver where a checked-in fixture is more convenient than environment
// variables.
func LoadConfigFromYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "endpoint: read config %s", path)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, errors.Wrapf(err, "endpoint: parse config %s", path)
	}

	cfg := Config{
		MaxPacketSize:      fc.MaxPacketSize,
		FragmentAbove:      fc.FragmentAbove,
		FragmentSize:       fc.FragmentSize,
		MaxFragments:       fc.MaxFragments,
		AckBufferSize:      fc.AckBufferSize,
		SentBufferSize:     fc.SentBufferSize,
		RecvBufferSize:     fc.RecvBufferSize,
		RTTSmoothing:       fc.RTTSmoothing,
		LossSmoothing:      fc.LossSmoothing,
		BandwidthSmoothing: fc.BandwidthSmoothing,
	}

	if fc.ReadTimeout != "" {
		d, err := time.ParseDuration(fc.ReadTimeout)
		if err != nil {
			return Config{}, errors.Wrapf(err, "endpoint: parse read_timeout %q", fc.ReadTimeout)
		}
		cfg.ReadTimeout = d
	}
	if fc.UpdateInterval != "" {
		d, err := time.ParseDuration(fc.UpdateInterval)
		if err != nil {
			return Config{}, errors.Wrapf(err, "endpoint: parse update_interval %q", fc.UpdateInterval)
		}
		cfg.UpdateInterval = d
	}

	return cfg.withDefaults(), nil
}
