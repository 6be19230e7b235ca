package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	keyGitHubUsername = "GITHUB_USERNAME"
	keyGitHubToken    = "GITHUB_TOKEN"
	keyGitHubAPIURL   = "GITHUB_API_URL"
	keyOpenAIAPIKey   = "OPENAI_API_KEY"
	keyOpenAIBaseURL  = "OPENAI_BASE_URL"
	keyOpenAIModel    = "OPENAI_MODEL"
	keyMaxFiles       = "SAMPLE_MAX_FILES"
	keyMaxFileBytes   = "SAMPLE_MAX_FILE_BYTES"
	keyMaxTotalBytes  = "SAMPLE_MAX_TOTAL_BYTES"
)

type Config struct {
	GitHubUsername string
	GitHubToken    string
	// GitHubAPIURL overrides the REST endpoint (GitHub Enterprise). Empty
	// means api.github.com.
	GitHubAPIURL string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	SampleMaxFiles      int
	SampleMaxFileBytes  int
	SampleMaxTotalBytes int
}

// ConfigurationError reports missing or invalid settings. It is fatal: the
// run stops before any repository is touched.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Load reads a .env file if present, then resolves settings from the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault(keyOpenAIBaseURL, "https://api.openai.com/v1")
	v.SetDefault(keyOpenAIModel, "gpt-4o-mini")
	v.SetDefault(keyMaxFiles, 5)
	v.SetDefault(keyMaxFileBytes, 2048)
	v.SetDefault(keyMaxTotalBytes, 5*2048)
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		GitHubUsername: strings.TrimSpace(v.GetString(keyGitHubUsername)),
		GitHubToken:    strings.TrimSpace(v.GetString(keyGitHubToken)),
		GitHubAPIURL:   strings.TrimSpace(v.GetString(keyGitHubAPIURL)),

		OpenAIAPIKey:  strings.TrimSpace(v.GetString(keyOpenAIAPIKey)),
		OpenAIBaseURL: strings.TrimSuffix(v.GetString(keyOpenAIBaseURL), "/"),
		OpenAIModel:   v.GetString(keyOpenAIModel),

		SampleMaxFiles:      v.GetInt(keyMaxFiles),
		SampleMaxFileBytes:  v.GetInt(keyMaxFileBytes),
		SampleMaxTotalBytes: v.GetInt(keyMaxTotalBytes),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var cerr ConfigurationError

	required := []struct {
		key   string
		value string
	}{
		{keyGitHubUsername, c.GitHubUsername},
		{keyGitHubToken, c.GitHubToken},
		{keyOpenAIAPIKey, c.OpenAIAPIKey},
	}
	for _, r := range required {
		if r.value == "" {
			cerr.Missing = append(cerr.Missing, r.key)
		}
	}

	if c.OpenAIModel == "" {
		cerr.Invalid = append(cerr.Invalid, keyOpenAIModel)
	}

	limits := []struct {
		key   string
		value int
	}{
		{keyMaxFiles, c.SampleMaxFiles},
		{keyMaxFileBytes, c.SampleMaxFileBytes},
		{keyMaxTotalBytes, c.SampleMaxTotalBytes},
	}
	for _, l := range limits {
		if l.value <= 0 {
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("%s=%d", l.key, l.value))
		}
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return &cerr
	}
	return nil
}
