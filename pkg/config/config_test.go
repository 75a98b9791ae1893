package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type sampleConfig struct {
	DataDir    string        `envconfig:"DATA_DIR" split_words:"true" default:"data"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" split_words:"true" default:"2h"`
	APIToken   string        `envconfig:"API_TOKEN" split_words:"true"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("CFGTEST_DATA_DIR=/tmp/voice\nCFGTEST_API_TOKEN=secret\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	SetEnvFile(path)
	t.Cleanup(func() {
		SetEnvFile("")
		os.Unsetenv("CFGTEST_DATA_DIR")
		os.Unsetenv("CFGTEST_API_TOKEN")
	})

	conf, err := New[sampleConfig]("CFGTEST")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.DataDir != "/tmp/voice" {
		t.Fatalf("DataDir = %q, want /tmp/voice", conf.DataDir)
	}
	if conf.APIToken != "secret" {
		t.Fatalf("APIToken = %q, want secret", conf.APIToken)
	}
	if conf.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %v, want 2h", conf.SessionTTL)
	}
}

func TestNewKeepsExistingEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.env")
	if err := os.WriteFile(path, []byte("CFGKEEP_DATA_DIR=/from/file\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("CFGKEEP_DATA_DIR", "/from/env")

	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	conf, err := New[sampleConfig]("CFGKEEP")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.DataDir != "/from/env" {
		t.Fatalf("DataDir = %q, want /from/env", conf.DataDir)
	}
}

func TestNewMissingExplicitFile(t *testing.T) {
	SetEnvFile(filepath.Join(t.TempDir(), "nope.env"))
	t.Cleanup(func() { SetEnvFile("") })

	if _, err := New[sampleConfig]("CFGMISSING"); err == nil {
		t.Fatal("expected error for missing explicit env file")
	}
}
