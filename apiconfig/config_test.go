package apiconfig_test

import (
	"testing"

	"github.com/deep60/nexus-security/apiconfig"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/stretchr/testify/require"
)

const testYaml = `
log_level: debug
store:
  path: /var/lib/consensusd
nats:
  enabled: true
  host: nats-broker
  port: 4333
params:
  consensus:
    default_threshold: 0.7
    min_submissions: 5
`

func TestConfigLoad(t *testing.T) {
	config, err := apiconfig.ReadConfigFrom(rawbytes.Provider([]byte(testYaml)))
	require.NoError(t, err)
	require.Equal(t, "debug", config.LogLevel)
	require.Equal(t, "/var/lib/consensusd", config.Store.Path)
	require.False(t, config.Store.InMemory)
	require.True(t, config.Nats.Enabled)
	require.Equal(t, "nats-broker", config.Nats.Host)
	require.Equal(t, 4333, config.Nats.Port)
	require.Equal(t, 0.7, config.Params.Consensus.DefaultThreshold)
	require.Equal(t, 5, config.Params.Consensus.MinSubmissions)
}

func TestConfigDefaultsSurvivePartialFile(t *testing.T) {
	config, err := apiconfig.ReadConfigFrom(rawbytes.Provider([]byte("log_level: warn\n")))
	require.NoError(t, err)
	require.Equal(t, "warn", config.LogLevel)
	require.Equal(t, "./consensus-data", config.Store.Path)
	require.Equal(t, "localhost", config.Nats.Host)
	require.Equal(t, 4222, config.Nats.Port)
	require.Equal(t, "consensusd", config.Nats.ClientName)
	require.Equal(t, 3, config.Params.Consensus.MinSubmissions)
}

func TestConfigEnvOverride(t *testing.T) {
	t.Setenv("CONSENSUS__NATS__HOST", "env-broker")
	t.Setenv("CONSENSUS__LOG_LEVEL", "error")
	config, err := apiconfig.ReadConfigFrom(rawbytes.Provider([]byte(testYaml)))
	require.NoError(t, err)
	require.Equal(t, "env-broker", config.Nats.Host)
	require.Equal(t, "error", config.LogLevel)
}
