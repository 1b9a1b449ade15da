// Package config loads the replay tool's TOML configuration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Logging Logging `toml:"logging"`
	Player  Player  `toml:"player"`
	Data    Data    `toml:"data"`
	Viewer  Viewer  `toml:"viewer"`
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type Player struct {
	// SnapshotStride overrides the tuning file's stride when positive.
	SnapshotStride int `toml:"snapshot_stride"`
}

type Data struct {
	MetadataPath string `toml:"metadata_path"`
	TuningPath   string `toml:"tuning_path"`
	SnapshotDir  string `toml:"snapshot_dir"`
	RoundLogDir  string `toml:"round_log_dir"`
	IndexPath    string `toml:"index_path"`
}

type Viewer struct {
	Addr           string `toml:"addr"`
	WriteTimeoutMS int    `toml:"write_timeout_ms"`
	SendBuffer     int    `toml:"send_buffer"`
	// AllowRemoteBootstrap serves /v1/bootstrap to non-loopback clients.
	AllowRemoteBootstrap bool `toml:"allow_remote_bootstrap"`
}

// Load reads path over the built-in defaults. A missing file is an error;
// use Default when no file is configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Data: Data{
			MetadataPath: "configs/metadata.yaml",
			TuningPath:   "configs/tuning.yaml",
			SnapshotDir:  "data/snapshots",
			RoundLogDir:  "data/roundlog",
			IndexPath:    "data/index.sqlite",
		},
		Viewer: Viewer{
			Addr:           "127.0.0.1:8090",
			WriteTimeoutMS: 2000,
			SendBuffer:     16,
		},
	}
}

func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format: %q is not json or console", c.Logging.Format)
	}
	if c.Player.SnapshotStride < 0 {
		return fmt.Errorf("player.snapshot_stride: must be >= 0, got %d", c.Player.SnapshotStride)
	}
	if c.Viewer.WriteTimeoutMS <= 0 {
		c.Viewer.WriteTimeoutMS = 2000
	}
	if c.Viewer.SendBuffer <= 0 {
		c.Viewer.SendBuffer = 16
	}
	return nil
}

// ApplyEnv lets LOG_LEVEL, LOG_FORMAT and VIEWER_ADDR override the file.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := getenv("VIEWER_ADDR"); v != "" {
		c.Viewer.Addr = v
	}
}
