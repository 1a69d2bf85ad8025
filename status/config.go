package status

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DEFAULT_API_URL = "https://api.github.com"
const DEFAULT_CONTEXT = "continuous-integration"

// Config holds the settings of the commit status reporter. It is read from
// a YAML file so the token stays out of the process arguments.
type Config struct {
	Token     string `yaml:"token"`
	Owner     string `yaml:"owner"`
	Repo      string `yaml:"repo"`
	APIURL    string `yaml:"api_url"`
	TargetURL string `yaml:"target_url"`
	Context   string `yaml:"context"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read status config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates a YAML status config, applying defaults
// for optional keys.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse status config: %w", err)
	}

	config.Token = strings.TrimSpace(config.Token)
	if len(config.Token) == 0 {
		return nil, errors.New("status config: missing token")
	}
	if len(config.Owner) == 0 {
		return nil, errors.New("status config: missing owner")
	}
	if len(config.Repo) == 0 {
		return nil, errors.New("status config: missing repo")
	}
	if len(config.APIURL) == 0 {
		config.APIURL = DEFAULT_API_URL
	}
	config.APIURL = strings.TrimRight(config.APIURL, "/")
	if len(config.Context) == 0 {
		config.Context = DEFAULT_CONTEXT
	}

	return &config, nil
}
