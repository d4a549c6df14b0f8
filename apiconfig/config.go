package apiconfig

import (
	"errors"
	"os"
	"strings"

	"github.com/deep60/nexus-security/types"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the full runtime configuration of the consensus daemon. Values
// come from defaults, then the yaml file, then CONSENSUS__ environment
// variables, in that order.
type Config struct {
	LogLevel string       `koanf:"log_level" yaml:"log_level"`
	Store    StoreConfig  `koanf:"store" yaml:"store"`
	Nats     NatsConfig   `koanf:"nats" yaml:"nats"`
	Params   types.Params `koanf:"params" yaml:"params"`
}

type StoreConfig struct {
	// Path is the badger database directory. Ignored when InMemory is set.
	Path     string `koanf:"path" yaml:"path"`
	InMemory bool   `koanf:"in_memory" yaml:"in_memory"`
}

type NatsConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	Host       string `koanf:"host" yaml:"host"`
	Port       int    `koanf:"port" yaml:"port"`
	ClientName string `koanf:"client_name" yaml:"client_name"`
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Store: StoreConfig{
			Path: "./consensus-data",
		},
		Nats: NatsConfig{
			Host:       "localhost",
			Port:       4222,
			ClientName: "consensusd",
		},
		Params: types.DefaultParams(),
	}
}

func getConfigPath() string {
	configPath := os.Getenv("CONSENSUS_CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	return configPath
}

// ReadConfig loads the daemon configuration from the default file location.
func ReadConfig() (Config, error) {
	return ReadConfigFrom(file.Provider(getConfigPath()))
}

// ReadConfigFrom loads configuration from an arbitrary koanf provider,
// layered over defaults and under CONSENSUS__ environment variables.
func ReadConfigFrom(provider koanf.Provider) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(provider, yaml.Parser()); err != nil {
		// A missing config file is fine, defaults and env cover it.
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}
	err := k.Load(env.Provider("CONSENSUS__", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "CONSENSUS__")), "__", ".", -1)
	}), nil)
	if err != nil {
		return Config{}, err
	}

	// Unmarshal into a pre-filled struct so keys absent from the file and
	// environment keep their default values.
	config := DefaultConfig()
	if err := k.Unmarshal("", &config); err != nil {
		return Config{}, err
	}
	return config, nil
}
