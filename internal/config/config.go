package config

import (
	"fmt"
)

type Config struct {
	ServerAddr string
	// DatabaseDSN selects the Postgres directory when set; the
	// in-memory directory is used otherwise.
	DatabaseDSN    string
	AllowedOrigins []string
}

func NewConfig(serverAddr, databaseDSN string, allowedOrigins []string) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	return &Config{
		ServerAddr:     serverAddr,
		DatabaseDSN:    databaseDSN,
		AllowedOrigins: allowedOrigins,
	}, nil
}
