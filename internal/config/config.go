package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tagaudit/internal/analysis"
)

type Config struct {
	Catalogue struct {
		GroupID     string `yaml:"group_id"`
		LibraryType string `yaml:"library_type"`
		APIKey      string `yaml:"api_key"`
	} `yaml:"catalogue"`
	Analysis analysis.Options `yaml:"analysis"`
	Output   struct {
		DataDir    string `yaml:"data_dir"`
		ReportsDir string `yaml:"reports_dir"`
	} `yaml:"output"`
}

// DefaultConfig returns the config used when no file is present.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Catalogue.LibraryType = "groups"
	cfg.Analysis = analysis.DefaultOptions()
	cfg.Output.DataDir = "data"
	cfg.Output.ReportsDir = "reports"
	return cfg
}

// LoadConfig reads the YAML config file, layering .env and environment
// variables on top. Credentials never live in the YAML checked into a
// project; they come from the environment.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := DefaultConfig()

	// 2. Load YAML config when present
	if file, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. Override with environment variables if present
	if groupID := os.Getenv("TAGAUDIT_GROUP_ID"); groupID != "" {
		cfg.Catalogue.GroupID = groupID
	}
	if apiKey := os.Getenv("TAGAUDIT_API_KEY"); apiKey != "" {
		cfg.Catalogue.APIKey = apiKey
	}
	if libType := os.Getenv("TAGAUDIT_LIBRARY_TYPE"); libType != "" {
		cfg.Catalogue.LibraryType = libType
	}

	return cfg, nil
}
