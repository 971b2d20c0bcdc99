// Package config loads the daemon's TOML configuration file.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Config is the top-level TOML document for maapd.
type Config struct {
	Listen    string `toml:"listen"`
	Interface string `toml:"interface"`

	PoolBase string `toml:"pool_base"`
	PoolLen  uint32 `toml:"pool_len"`
}

// Default returns the configuration used when no file is present and no
// flag overrides a given field.
func Default() Config {
	return Config{
		Listen:   ":8080",
		PoolBase: "91:E0:F0:00:00:00",
		PoolLen:  0xFE00,
	}
}

// Load reads and decodes path into a Config seeded with Default values.
// A missing file is not an error: the caller gets Default back.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "config: stat %q", path)
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %q", path)
	}
	return cfg, nil
}
