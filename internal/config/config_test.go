package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	tcases := []struct {
		name           string
		serverAddr     string
		databaseDSN    string
		allowedOrigins []string
		wantErr        bool
	}{
		{
			name:           "valid config",
			serverAddr:     "localhost:8000",
			databaseDSN:    "host=localhost dbname=parley",
			allowedOrigins: []string{"http://localhost:3000"},
			wantErr:        false,
		},
		{
			name:       "empty dsn selects the in-memory directory",
			serverAddr: "localhost:8000",
			wantErr:    false,
		},
		{
			name:    "missing server address",
			wantErr: true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.serverAddr, tc.databaseDSN, tc.allowedOrigins)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.serverAddr, cfg.ServerAddr)
			assert.Equal(t, tc.databaseDSN, cfg.DatabaseDSN)
			assert.Equal(t, tc.allowedOrigins, cfg.AllowedOrigins)
		})
	}
}
