package config

import (
	"fmt"
	"os"
	"strings"
)

type Server struct {
	Addr            string   `json:"addr" env:"ADDR"`
	AllowedOrigins  []string `json:"allowed_origins" env:"ALLOWED_ORIGINS" envSeparator:","`
	TokenSecret     string   `json:"-" env:"TOKEN_SECRET"`
	TokenSecretFile string   `json:"token_secret_file" env:"TOKEN_SECRET_FILE"`
	TokenLifetime   Duration `json:"token_lifetime" env:"TOKEN_LIFETIME"`
	SessionTTL      Duration `json:"session_ttl" env:"SESSION_TTL"`
	MaxCells        int      `json:"max_cells" env:"MAX_CELLS"`
}

func (s Server) Validate() error {
	switch {
	case s.TokenLifetime.Duration <= 0:
		return fmt.Errorf("server.token_lifetime must be positive (have %s)", s.TokenLifetime)
	case s.SessionTTL.Duration <= 0:
		return fmt.Errorf("server.session_ttl must be positive (have %s)", s.SessionTTL)
	case s.MaxCells <= 0:
		return fmt.Errorf("server.max_cells must be positive (have %d)", s.MaxCells)
	}
	return nil
}

// LoadTokenSecret returns the key session tokens are signed with. ok is
// false when neither TokenSecret nor TokenSecretFile is set.
func (s Server) LoadTokenSecret() (secret []byte, ok bool, err error) {
	if s.TokenSecret != "" {
		return []byte(s.TokenSecret), true, nil
	}
	if s.TokenSecretFile == "" {
		return nil, false, nil
	}
	data, err := os.ReadFile(s.TokenSecretFile)
	if err != nil {
		return nil, false, fmt.Errorf("unable to read token secret: %w", err)
	}
	secret = []byte(strings.TrimSpace(string(data)))
	if len(secret) == 0 {
		return nil, false, fmt.Errorf("token secret file %s is empty", s.TokenSecretFile)
	}
	return secret, true, nil
}
