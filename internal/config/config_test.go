package config

import (
	"os"
	"path/filepath"
	"testing"
)

func useTempHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("NEWSDIGEST_HOME", dir)
	return dir
}

func TestLoadMissingFile(t *testing.T) {
	useTempHome(t)

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	useTempHome(t)

	want := Default()
	want.Sources = []Source{{Name: "Test Feed", URL: "https://example.com/rss"}}
	want.Topics = []Topic{{
		Name:        "Go releases",
		Description: "New Go versions",
		Keywords:    []string{"golang", "go1."},
		Priority:    PriorityHigh,
	}}

	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(got.Sources) != 1 || got.Sources[0].URL != "https://example.com/rss" {
		t.Errorf("sources not preserved: %+v", got.Sources)
	}
	if len(got.Topics) != 1 || got.Topics[0].Name != "Go releases" {
		t.Errorf("topics not preserved: %+v", got.Topics)
	}
	if got.Classifier.RelevanceThreshold != 0.6 {
		t.Errorf("threshold = %v, want default 0.6", got.Classifier.RelevanceThreshold)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	dir := useTempHome(t)

	// Minimal file: only sources and topics, everything else from defaults.
	content := `
sources:
  - name: Feed
    url: https://example.com/rss
topics:
  - name: Topic
    description: d
    keywords: [kw]
    priority: low
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.Model == "" {
		t.Error("expected default classifier model")
	}
	if cfg.Classifier.MaxArticlesPerRun != 50 {
		t.Errorf("MaxArticlesPerRun = %d, want 50", cfg.Classifier.MaxArticlesPerRun)
	}
}

func TestEnvOverrides(t *testing.T) {
	useTempHome(t)
	if err := Save(Default()); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AI_PROVIDER", "minimax")
	t.Setenv("NEWSDIGEST_MODEL", "some-other-model")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Classifier.Provider != "minimax" {
		t.Errorf("provider = %q, want minimax", cfg.Classifier.Provider)
	}
	if cfg.Classifier.Model != "some-other-model" {
		t.Errorf("model = %q, want some-other-model", cfg.Classifier.Model)
	}
}

func TestValidate(t *testing.T) {
	base := Default()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"no sources", func(c *Config) { c.Sources = nil }, true},
		{"no topics", func(c *Config) { c.Topics = nil }, true},
		{"duplicate topic", func(c *Config) {
			c.Topics = append(c.Topics, c.Topics[0])
		}, true},
		{"bad priority", func(c *Config) { c.Topics[0].Priority = "urgent" }, true},
		{"empty source url", func(c *Config) { c.Sources[0].URL = "" }, true},
		{"zero max articles", func(c *Config) { c.Classifier.MaxArticlesPerRun = 0 }, true},
		{"threshold out of range", func(c *Config) { c.Classifier.RelevanceThreshold = 1.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.Sources = append([]Source(nil), base.Sources...)
			cfg.Topics = append([]Topic(nil), base.Topics...)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddSourceRejectsDuplicate(t *testing.T) {
	useTempHome(t)
	if err := Save(Default()); err != nil {
		t.Fatal(err)
	}

	if err := AddSource("New Feed", "https://example.org/rss"); err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	if err := AddSource("Again", "https://example.org/rss"); err == nil {
		t.Error("expected duplicate URL to be rejected")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range cfg.Sources {
		if s.URL == "https://example.org/rss" {
			found = true
		}
	}
	if !found {
		t.Error("added source not persisted")
	}
}

func TestAddTopicDefaultsPriority(t *testing.T) {
	useTempHome(t)
	if err := Save(Default()); err != nil {
		t.Fatal(err)
	}

	if err := AddTopic(Topic{Name: "Databases", Description: "d", Keywords: []string{"sqlite"}}); err != nil {
		t.Fatalf("AddTopic: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	for _, topic := range cfg.Topics {
		if topic.Name == "Databases" && topic.Priority != PriorityMedium {
			t.Errorf("priority = %q, want %q", topic.Priority, PriorityMedium)
		}
	}
}
