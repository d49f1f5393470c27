package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// GlobalConfig is the per-user client state stored in config.json.
type GlobalConfig struct {
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url,omitempty"`
	// LastConversationID lets `ask --continue` resume the previous session.
	LastConversationID string `json:"last_conversation_id,omitempty"`
}

var (
	getConfigDirFunc  = defaultGetConfigDir
	getConfigPathFunc = defaultGetConfigPath
)

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "docsrag"), nil
}

func defaultGetConfigPath() (string, error) {
	configDir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// GetConfigPath returns the full path to the config.json file
func GetConfigPath() (string, error) {
	return getConfigPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config
// and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &config, nil
}

// SaveGlobalConfig writes the config to config.json with 0600 permissions
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// rememberConversation stores id as the session `ask --continue` resumes.
// Failures only cost the convenience, so they are reported and ignored.
func rememberConversation(id string) {
	config, err := LoadGlobalConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	config.LastConversationID = id
	if err := SaveGlobalConfig(config); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
}

// CredentialSource represents where the endpoint settings came from
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
)

// Endpoint is the resolved server address and optional bearer key.
type Endpoint struct {
	URL    string
	APIKey string
	Source CredentialSource
}

// ResolveEndpoint applies the cascade flag -> env -> global config -> default
// to the URL; the key follows the same cascade and may end up empty.
func ResolveEndpoint(flagURL, flagKey string) (Endpoint, error) {
	ep := Endpoint{URL: flagURL, APIKey: flagKey, Source: SourceFlag}
	if ep.URL == "" {
		ep.Source = SourceEnv
		ep.URL = os.Getenv(envAPIURL)
	}
	if ep.APIKey == "" {
		ep.APIKey = os.Getenv(envAPIKey)
	}

	if ep.URL == "" || ep.APIKey == "" {
		config, err := LoadGlobalConfig()
		if err != nil {
			return Endpoint{}, err
		}
		if config != nil {
			if ep.URL == "" && config.APIURL != "" {
				ep.URL = config.APIURL
				ep.Source = SourceGlobalConfig
			}
			if ep.APIKey == "" {
				ep.APIKey = config.APIKey
			}
		}
	}

	if ep.URL == "" {
		ep.URL = defaultAPIURL
		ep.Source = SourceDefault
	}
	return ep, nil
}
