// Package config handles global configuration loading using viper.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cygnusgs/groundlink/internal/ax25"
	"github.com/cygnusgs/groundlink/internal/core"
)

// GlobalConfig is the top-level static configuration. Maps to the
// `groundlink:` root key in YAML.
type GlobalConfig struct {
	Station StationConfig `mapstructure:"station" yaml:"station"`
	Radio   RadioConfig   `mapstructure:"radio" yaml:"radio"`
	Link    LinkConfig    `mapstructure:"link" yaml:"link"`
	Keys    KeysConfig    `mapstructure:"keys" yaml:"keys"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// StationConfig identifies the two ends of the link.
type StationConfig struct {
	GroundCallsign     string `mapstructure:"ground_callsign" yaml:"ground_callsign"`         // e.g. "W4UVA-0"
	SpacecraftCallsign string `mapstructure:"spacecraft_callsign" yaml:"spacecraft_callsign"` // e.g. "W4UVA-11"
	LeapSeconds        int    `mapstructure:"leap_seconds" yaml:"leap_seconds"`
}

// RadioConfig selects and addresses the physical transport.
type RadioConfig struct {
	Transport         string `mapstructure:"transport" yaml:"transport"` // kiss | lithium
	KissRxAddr        string `mapstructure:"kiss_rx_addr" yaml:"kiss_rx_addr"`
	KissTxAddr        string `mapstructure:"kiss_tx_addr" yaml:"kiss_tx_addr"`
	SerialDevice      string `mapstructure:"serial_device" yaml:"serial_device"`
	SerialBaud        int    `mapstructure:"serial_baud" yaml:"serial_baud"`
	FixedUplinkFrames bool   `mapstructure:"fixed_uplink_frames" yaml:"fixed_uplink_frames"`
}

// LinkConfig carries the ARQ and pacing parameters.
type LinkConfig struct {
	WindowSize       int           `mapstructure:"window_size" yaml:"window_size"`
	MaxRetries       int           `mapstructure:"max_retries" yaml:"max_retries"`
	AckTimeout       time.Duration `mapstructure:"ack_timeout" yaml:"ack_timeout"`
	SequenceSkew     int           `mapstructure:"sequence_skew" yaml:"sequence_skew"`
	Turnaround       time.Duration `mapstructure:"turnaround" yaml:"turnaround"`
	HealthPerPacket  int           `mapstructure:"health_per_packet" yaml:"health_per_packet"`
	SciencePerPacket int           `mapstructure:"science_per_packet" yaml:"science_per_packet"`
	EncryptUplink    bool          `mapstructure:"encrypt_uplink" yaml:"encrypt_uplink"`
}

// KeysConfig holds the hex-encoded key material.
type KeysConfig struct {
	SpacecraftMAC string `mapstructure:"spacecraft_mac" yaml:"spacecraft_mac"` // 32 hex chars
	GroundMAC     string `mapstructure:"ground_mac" yaml:"ground_mac"`         // 32 hex chars
	OpenAccess    string `mapstructure:"open_access" yaml:"open_access"`       // 32 hex chars
	Cipher        string `mapstructure:"cipher" yaml:"cipher"`                 // 32 hex chars
	CipherIV      string `mapstructure:"cipher_iv" yaml:"cipher_iv"`           // 16 hex chars
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`   // debug | info | warn | error
	Format string        `mapstructure:"format" yaml:"format"` // json | text
	File   LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig enables rotated file output alongside stderr.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// configRoot is the wrapper matching the YAML structure `groundlink: ...`.
type configRoot struct {
	GroundLink GlobalConfig `mapstructure:"groundlink" yaml:"groundlink"`
}

// Load loads configuration from file. Env vars override file values via
// the GROUNDLINK_ prefix (e.g. GROUNDLINK_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.GroundLink

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("groundlink.station.leap_seconds", 18)

	v.SetDefault("groundlink.radio.transport", "kiss")
	v.SetDefault("groundlink.radio.serial_baud", 9600)
	v.SetDefault("groundlink.radio.fixed_uplink_frames", true)

	v.SetDefault("groundlink.link.window_size", 1)
	v.SetDefault("groundlink.link.max_retries", 4)
	v.SetDefault("groundlink.link.ack_timeout", "5s")
	v.SetDefault("groundlink.link.sequence_skew", 2)
	v.SetDefault("groundlink.link.turnaround", "1000ms")
	v.SetDefault("groundlink.link.health_per_packet", 4)
	v.SetDefault("groundlink.link.science_per_packet", 2)
	v.SetDefault("groundlink.link.encrypt_uplink", false)

	v.SetDefault("groundlink.metrics.enabled", true)
	v.SetDefault("groundlink.metrics.listen", ":9091")
	v.SetDefault("groundlink.metrics.path", "/metrics")

	v.SetDefault("groundlink.log.level", "info")
	v.SetDefault("groundlink.log.format", "text")
	v.SetDefault("groundlink.log.file.enabled", false)
	v.SetDefault("groundlink.log.file.path", "/var/log/groundlink/groundlink.log")
	v.SetDefault("groundlink.log.file.max_size_mb", 100)
	v.SetDefault("groundlink.log.file.max_age_days", 30)
	v.SetDefault("groundlink.log.file.max_backups", 5)
	v.SetDefault("groundlink.log.file.compress", true)
}

// Validate checks everything that would otherwise fail deep inside the
// stack at runtime.
func (cfg *GlobalConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level %q", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: invalid log format %q", core.ErrConfigInvalid, cfg.Log.Format)
	}

	switch cfg.Radio.Transport {
	case "kiss":
		if cfg.Radio.KissRxAddr == "" || cfg.Radio.KissTxAddr == "" {
			return fmt.Errorf("%w: kiss transport needs kiss_rx_addr and kiss_tx_addr", core.ErrConfigInvalid)
		}
	case "lithium":
		if cfg.Radio.SerialDevice == "" {
			return fmt.Errorf("%w: lithium transport needs serial_device", core.ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown transport %q", core.ErrConfigInvalid, cfg.Radio.Transport)
	}

	if _, err := cfg.Callsigns(); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	if cfg.Link.WindowSize < 1 || cfg.Link.WindowSize > 20 {
		return fmt.Errorf("%w: window_size %d outside [1,20]", core.ErrConfigInvalid, cfg.Link.WindowSize)
	}
	if cfg.Link.MaxRetries < 1 {
		return fmt.Errorf("%w: max_retries must be at least 1", core.ErrConfigInvalid)
	}
	if cfg.Link.AckTimeout <= 0 {
		return fmt.Errorf("%w: ack_timeout must be positive", core.ErrConfigInvalid)
	}

	if _, err := cfg.SessionKeys(); err != nil {
		return err
	}
	return nil
}

// Callsigns parses the configured station identities. Index 0 is the
// spacecraft (frame destination), index 1 the ground station.
func (cfg *GlobalConfig) Callsigns() ([2]ax25.Callsign, error) {
	var out [2]ax25.Callsign
	var err error
	if out[0], err = ax25.ParseCallsign(cfg.Station.SpacecraftCallsign); err != nil {
		return out, err
	}
	if out[1], err = ax25.ParseCallsign(cfg.Station.GroundCallsign); err != nil {
		return out, err
	}
	return out, nil
}

// SessionKeys decodes the hex key material. The cipher key and IV are
// only required when uplink encryption is enabled.
func (cfg *GlobalConfig) SessionKeys() (*core.Keys, error) {
	keys := &core.Keys{}
	if err := decodeKey(cfg.Keys.SpacecraftMAC, keys.SpacecraftMAC[:], "keys.spacecraft_mac"); err != nil {
		return nil, err
	}
	if err := decodeKey(cfg.Keys.GroundMAC, keys.GroundMAC[:], "keys.ground_mac"); err != nil {
		return nil, err
	}
	if err := decodeKey(cfg.Keys.OpenAccess, keys.OA[:], "keys.open_access"); err != nil {
		return nil, err
	}
	if cfg.Link.EncryptUplink {
		if err := decodeKey(cfg.Keys.Cipher, keys.Cipher[:], "keys.cipher"); err != nil {
			return nil, err
		}
		if err := decodeKey(cfg.Keys.CipherIV, keys.CipherIV[:], "keys.cipher_iv"); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func decodeKey(s string, dst []byte, name string) error {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%w: %s is not valid hex", core.ErrBadKeyLength, name)
	}
	if len(raw) != len(dst) {
		return fmt.Errorf("%w: %s is %d bytes, want %d", core.ErrBadKeyLength, name, len(raw), len(dst))
	}
	copy(dst, raw)
	return nil
}

// LinkParams converts the link section into the immutable parameter
// struct the controller consumes.
func (cfg *GlobalConfig) LinkParams() core.LinkParams {
	p := core.LinkParams{
		WindowSize:       cfg.Link.WindowSize,
		MaxRetries:       cfg.Link.MaxRetries,
		AckTimeout:       cfg.Link.AckTimeout,
		SequenceSkew:     cfg.Link.SequenceSkew,
		Turnaround:       cfg.Link.Turnaround,
		HealthPerPacket:  cfg.Link.HealthPerPacket,
		SciencePerPacket: cfg.Link.SciencePerPacket,
	}
	p.ClampWindow()
	return p
}
