package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Topic priorities, highest first.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Source is a single feed subscription.
type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Topic is a user interest definition used as classification context.
type Topic struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
	Priority    string   `yaml:"priority"`
}

type Config struct {
	Sources    []Source         `yaml:"sources"`
	Topics     []Topic          `yaml:"topics"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Output     OutputConfig     `yaml:"output"`
	Storage    StorageConfig    `yaml:"storage"`
}

type ClassifierConfig struct {
	// Provider selects the completion backend: "anthropic" (default) or
	// "minimax". The API key always comes from the environment, never the file.
	Provider           string  `yaml:"provider"`
	Model              string  `yaml:"model"`
	MaxArticlesPerRun  int     `yaml:"max_articles_per_run"`
	RelevanceThreshold float64 `yaml:"relevance_threshold"`
}

type OutputConfig struct {
	Terminal   bool   `yaml:"terminal"`
	ReportsDir string `yaml:"reports_dir"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// Dir returns the configuration directory (~/.newsdigest by default,
// NEWSDIGEST_HOME overrides it).
func Dir() string {
	if dir := os.Getenv("NEWSDIGEST_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newsdigest"
	}
	return filepath.Join(home, ".newsdigest")
}

// Path returns the config file location inside Dir.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Exists reports whether a config file has been written.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

func defaults() Config {
	dir := Dir()
	return Config{
		Sources: []Source{
			{Name: "Hacker News - AI/LLM", URL: "https://hnrss.org/newest?q=AI+LLM+agent"},
			{Name: "The Verge - AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml"},
		},
		Topics: []Topic{
			{
				Name:        "AI coding tools",
				Description: "New releases and features of AI-assisted developer tooling",
				Keywords:    []string{"claude code", "copilot", "cursor"},
				Priority:    PriorityHigh,
			},
		},
		Classifier: ClassifierConfig{
			Provider:           "anthropic",
			Model:              "claude-haiku-4-5-20251001",
			MaxArticlesPerRun:  50,
			RelevanceThreshold: 0.6,
		},
		Output: OutputConfig{
			Terminal:   true,
			ReportsDir: filepath.Join(dir, "reports"),
		},
		Storage: StorageConfig{
			DataDir: dir,
		},
	}
}

// Default returns the built-in configuration, used by `newsdigest init`.
func Default() Config {
	return defaults()
}

// Load reads the config file, fills unset fields from defaults, applies
// environment overrides, and validates the result. A missing file is an error;
// run `newsdigest init` first.
func Load() (Config, error) {
	raw, err := os.ReadFile(Path())
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file %s not found, run `newsdigest init` first", Path())
		}
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AI_PROVIDER"); v != "" {
		cfg.Classifier.Provider = v
	}
	if v := os.Getenv("NEWSDIGEST_MODEL"); v != "" {
		cfg.Classifier.Model = v
	}
	if v := os.Getenv("NEWSDIGEST_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("NEWSDIGEST_REPORTS_DIR"); v != "" {
		cfg.Output.ReportsDir = v
	}
}

// Validate checks structural invariants: at least one source and topic, unique
// topic names, known priorities, and a sane classifier section.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config: no sources configured")
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("config: no topics configured")
	}

	seen := make(map[string]bool, len(c.Topics))
	for _, t := range c.Topics {
		if t.Name == "" {
			return fmt.Errorf("config: topic with empty name")
		}
		if seen[t.Name] {
			return fmt.Errorf("config: duplicate topic name %q", t.Name)
		}
		seen[t.Name] = true

		switch t.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return fmt.Errorf("config: topic %q has unknown priority %q", t.Name, t.Priority)
		}
	}

	for _, s := range c.Sources {
		if s.Name == "" || s.URL == "" {
			return fmt.Errorf("config: source entries require both name and url")
		}
	}

	if c.Classifier.Model == "" {
		return fmt.Errorf("config: classifier model is required")
	}
	if c.Classifier.MaxArticlesPerRun <= 0 {
		return fmt.Errorf("config: max_articles_per_run must be positive")
	}
	if c.Classifier.RelevanceThreshold < 0 || c.Classifier.RelevanceThreshold > 1 {
		return fmt.Errorf("config: relevance_threshold must be within [0, 1]")
	}
	return nil
}

// Save writes the config to Path, creating the directory when needed.
func Save(cfg Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(Path(), data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// AddSource appends a feed subscription and saves the file. Duplicate URLs are
// rejected.
func AddSource(name, url string) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	for _, s := range cfg.Sources {
		if s.URL == url {
			return fmt.Errorf("source already configured: %s", url)
		}
	}
	cfg.Sources = append(cfg.Sources, Source{Name: name, URL: url})
	return Save(cfg)
}

// AddTopic appends an interest topic and saves the file. Topic names must stay
// unique.
func AddTopic(t Topic) error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	for _, existing := range cfg.Topics {
		if existing.Name == t.Name {
			return fmt.Errorf("topic already configured: %s", t.Name)
		}
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	cfg.Topics = append(cfg.Topics, t)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return Save(cfg)
}
