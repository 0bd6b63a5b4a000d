package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Records configures the finished games store. An empty driver disables it.
type Records struct {
	Driver  string `json:"driver" env:"DRIVER"`
	DSN     string `json:"dsn" env:"DSN"`
	DSNFile string `json:"dsn_file" env:"DSN_FILE"`
}

func (r Records) Enabled() bool {
	return r.Driver != ""
}

func (r Records) Validate() error {
	switch r.Driver {
	case "", DriverSQLite, DriverPostgres:
		return nil
	default:
		return fmt.Errorf(
			"unknown records driver %q (want %q or %q)",
			r.Driver, DriverSQLite, DriverPostgres,
		)
	}
}

// LoadDSN returns the data source name, reading it from DSNFile when DSN is
// not set so that credentials can be mounted as secrets.
func (r Records) LoadDSN() (string, error) {
	if r.DSN != "" {
		return r.DSN, nil
	}
	if r.DSNFile == "" {
		return "", fmt.Errorf("no records dsn or dsn_file set")
	}
	data, err := os.ReadFile(r.DSNFile)
	if err != nil {
		return "", fmt.Errorf("unable to read dsn file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
