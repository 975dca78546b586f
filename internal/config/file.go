package config

import (
	"os"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig is the optional on-disk override layer, read before environment
// variables are applied so that env always wins over a committed config file.
type FileConfig struct {
	ListenPort int    `yaml:"listenPort"`
	WebOrigin  string `yaml:"webOrigin"`

	Searx struct {
		URL string `yaml:"url"`
	} `yaml:"searx"`

	LLM struct {
		BaseURL string `yaml:"baseURL"`
		Model   string `yaml:"model"`
	} `yaml:"llm"`

	Search struct {
		Concurrency        int           `yaml:"concurrency"`
		Timeout            time.Duration `yaml:"timeout"`
		MaxResultsPerQuery int           `yaml:"maxResultsPerQuery"`
	} `yaml:"search"`

	Cache struct {
		Dir string `yaml:"dir"`
	} `yaml:"cache"`

	Verbose bool `yaml:"verbose"`
}

// LoadFile reads a YAML config file, if present, and layers it over cfg. A
// missing file is not an error; callers pass an explicit path only when one
// is configured.
func LoadFile(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var fc FileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return err
	}
	if fc.ListenPort > 0 {
		cfg.ListenPort = fc.ListenPort
	}
	if fc.WebOrigin != "" {
		cfg.WebOrigin = fc.WebOrigin
	}
	if fc.Searx.URL != "" {
		cfg.SearxURL = fc.Searx.URL
	}
	if fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if fc.Search.Concurrency > 0 {
		cfg.SearchConcurrency = fc.Search.Concurrency
	}
	if fc.Search.Timeout > 0 {
		cfg.SearchTimeout = fc.Search.Timeout
	}
	if fc.Search.MaxResultsPerQuery > 0 {
		cfg.MaxResultsPerQuery = fc.Search.MaxResultsPerQuery
	}
	if fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if fc.Verbose {
		cfg.Verbose = true
	}
	return nil
}
