package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/vancomm/minesweeper/internal/mines"
)

const EnvPrefix = "MINES_"

type Duration struct{ time.Duration }

// [Duration] implements [json.Marshaler]
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return errors.New("invalid duration")
	}
}

// UnmarshalText is used for environment variables.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Log struct {
	Level      string `json:"level" env:"LEVEL"`
	File       string `json:"file" env:"FILE"`
	MaxSizeMB  int    `json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `json:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `json:"max_age_days" env:"MAX_AGE_DAYS"`
}

type Config struct {
	Mode    string       `json:"mode" env:"MODE"`
	Board   mines.Params `json:"board" env:"BOARD"`
	Seed    uint64       `json:"seed" env:"SEED"`
	Log     Log          `json:"log" envPrefix:"LOG_"`
	Records Records      `json:"records" envPrefix:"RECORDS_"`
	Server  Server       `json:"server" envPrefix:"SERVER_"`
	SSH     SSH          `json:"ssh" envPrefix:"SSH_"`
}

func Default() *Config {
	return &Config{
		Mode:  "production",
		Board: mines.DefaultParams,
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Server: Server{
			Addr:          ":8080",
			TokenLifetime: Duration{24 * time.Hour},
			SessionTTL:    Duration{30 * time.Minute},
			MaxCells:      100 * 100,
		},
		SSH: SSH{
			Addr: ":2222",
		},
	}
}

func ReadConfig(path string, config *Config) error {
	if b, err := os.ReadFile(path); err != nil {
		return err
	} else {
		return json.Unmarshal(b, config)
	}
}

// Load layers the config file at path (if any) and MINES_* environment
// variables over [Default].
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		if err := ReadConfig(path, config); err != nil {
			return nil, fmt.Errorf("unable to read config %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("unable to parse env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.Mode != "production" && c.Mode != "development" {
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if err := c.Board.Validate(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return c.Records.Validate()
}

func (c Config) Fields() logrus.Fields {
	return map[string]any{
		"mode":                  c.Mode,
		"board":                 c.Board.String(),
		"seeded":                c.Seed != 0,
		"log_level":             c.Log.Level,
		"log_file":              c.Log.File,
		"records_driver":        c.Records.Driver,
		"server_addr":           c.Server.Addr,
		"server_origins":        c.Server.AllowedOrigins,
		"server_token_lifetime": c.Server.TokenLifetime.String(),
		"server_session_ttl":    c.Server.SessionTTL.String(),
		"server_max_cells":      c.Server.MaxCells,
		"ssh_addr":              c.SSH.Addr,
		"ssh_host_key_file":     c.SSH.HostKeyFile,
	}
}

func (c Config) Production() bool {
	return c.Mode == "production"
}

func (c Config) Development() bool {
	return c.Mode != "production"
}
