package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTempConfig points the global config at a file under t.TempDir.
func useTempConfig(t *testing.T) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "docsrag", "config.json")
	old := getConfigPathFunc
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { getConfigPathFunc = old })
	return configPath
}

func TestGetConfigPath(t *testing.T) {
	path, err := defaultGetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, filepath.Join("docsrag", "config.json")))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useTempConfig(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := useTempConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadGlobalConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	configPath := useTempConfig(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://docs:8080", LastConversationID: "conv-1"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "http://docs:8080", config.APIURL)
	assert.Equal(t, "conv-1", config.LastConversationID)
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func TestRememberConversation_KeepsEndpoint(t *testing.T) {
	useTempConfig(t)
	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://docs:8080", APIKey: "k"}))

	rememberConversation("conv-9")

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "conv-9", config.LastConversationID)
	assert.Equal(t, "http://docs:8080", config.APIURL)
	assert.Equal(t, "k", config.APIKey)
}

func TestResolveEndpoint(t *testing.T) {
	t.Run("flags win", func(t *testing.T) {
		useTempConfig(t)
		t.Setenv(envAPIURL, "http://env:1")
		t.Setenv(envAPIKey, "env-key")

		ep, err := ResolveEndpoint("http://flag:1", "flag-key")
		require.NoError(t, err)
		assert.Equal(t, Endpoint{URL: "http://flag:1", APIKey: "flag-key", Source: SourceFlag}, ep)
	})

	t.Run("env over global config", func(t *testing.T) {
		useTempConfig(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://file:1", APIKey: "file-key"}))
		t.Setenv(envAPIURL, "http://env:1")
		t.Setenv(envAPIKey, "")

		ep, err := ResolveEndpoint("", "")
		require.NoError(t, err)
		assert.Equal(t, "http://env:1", ep.URL)
		assert.Equal(t, "file-key", ep.APIKey)
		assert.Equal(t, SourceEnv, ep.Source)
	})

	t.Run("global config", func(t *testing.T) {
		useTempConfig(t)
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://file:1"}))
		t.Setenv(envAPIURL, "")
		t.Setenv(envAPIKey, "")

		ep, err := ResolveEndpoint("", "")
		require.NoError(t, err)
		assert.Equal(t, "http://file:1", ep.URL)
		assert.Empty(t, ep.APIKey)
		assert.Equal(t, SourceGlobalConfig, ep.Source)
	})

	t.Run("default", func(t *testing.T) {
		useTempConfig(t)
		t.Setenv(envAPIURL, "")
		t.Setenv(envAPIKey, "")

		ep, err := ResolveEndpoint("", "")
		require.NoError(t, err)
		assert.Equal(t, defaultAPIURL, ep.URL)
		assert.Equal(t, SourceDefault, ep.Source)
	})
}
