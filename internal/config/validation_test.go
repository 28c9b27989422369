package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *Config) {}},
		{
			name: "remap pair",
			mutate: func(c *Config) {
				c.Paths.OrigPrefix = "/a"
				c.Paths.NewPrefix = "/b"
			},
		},
		{name: "orig without new", mutate: func(c *Config) { c.Paths.OrigPrefix = "/a" }, wantErr: true},
		{name: "new without orig", mutate: func(c *Config) { c.Paths.NewPrefix = "/b" }, wantErr: true},
		{name: "relative debug root", mutate: func(c *Config) { c.Paths.DebugRoot = "debug" }, wantErr: true},
		{name: "empty debug root", mutate: func(c *Config) { c.Paths.DebugRoot = "" }},
		{name: "negative gcno size", mutate: func(c *Config) { c.Parser.MaxGcnoSize = -1 }, wantErr: true},
		{name: "negative cache", mutate: func(c *Config) { c.Parser.PathCacheSize = -1 }, wantErr: true},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
