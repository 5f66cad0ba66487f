// Package config loads the demo node's TOML configuration.
package config

import (
	"github.com/BurntSushi/toml"
)

type Config struct {
	// Listen is the custody gRPC listen address.
	Listen string `toml:"listen"`

	// KeysDir is the wallet keystore directory; empty means the default
	// under the user's home.
	KeysDir string `toml:"keys_dir"`

	// DBPath is the index database file.
	DBPath string `toml:"db_path"`

	DIDTopic        string `toml:"did_topic"`
	MessageTopic    string `toml:"message_topic"`
	CredentialTopic string `toml:"credential_topic"`

	Method   string `toml:"method"`
	FeePerKB uint64 `toml:"fee_per_kb"`

	// MintValue seeds the demo chain with one output of this value per
	// wallet identity at startup. Zero disables minting.
	MintValue uint64 `toml:"mint_value"`
}

// Default returns the configuration the daemon runs with when no file is
// given.
func Default() Config {
	return Config{
		Listen:          "127.0.0.1:7788",
		DBPath:          "anchor-index.db",
		DIDTopic:        "cura-did",
		MessageTopic:    "cura-msg",
		CredentialTopic: "cura-vc",
		Method:          "cura",
		FeePerKB:        500,
		MintValue:       100000,
	}
}

// Load reads path over the defaults; unset fields keep their default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
