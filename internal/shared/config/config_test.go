package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"PORT", "ENV", "OPENAI_TIMEOUT_SECONDS", "OPENAI_DOCUMENT_TIMEOUT_SECONDS", "MAX_DOCUMENT_BYTES", "ALLOCATION_TOLERANCE"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "dev" {
		t.Fatalf("expected env dev, got %s", cfg.Env)
	}
	if cfg.TextTimeout != 120*time.Second || cfg.DocumentTimeout != 300*time.Second {
		t.Fatalf("unexpected timeouts text=%s document=%s", cfg.TextTimeout, cfg.DocumentTimeout)
	}
	if cfg.MaxDocumentBytes != 10<<20 {
		t.Fatalf("expected 10MB document cap, got %d", cfg.MaxDocumentBytes)
	}
	if cfg.AllocationTolerance.String() != "0.01" {
		t.Fatalf("expected tolerance 0.01, got %s", cfg.AllocationTolerance)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
}

func TestLoadReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LLM_MODEL=\"gpt-test\"\nOPENAI_TIMEOUT_SECONDS=30\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("LLM_MODEL", "")
	t.Setenv("OPENAI_TIMEOUT_SECONDS", "")
	os.Unsetenv("LLM_MODEL")
	os.Unsetenv("OPENAI_TIMEOUT_SECONDS")

	cfg := Load()
	if cfg.LLMModel != "gpt-test" {
		t.Fatalf("expected model from .env, got %q", cfg.LLMModel)
	}
	if cfg.TextTimeout != 30*time.Second {
		t.Fatalf("expected 30s timeout, got %s", cfg.TextTimeout)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Config{
		Port:             "99999",
		Env:              "production",
		ObjectStoreType:  "s3",
		MaxDocumentBytes: 1,
		TextTimeout:      time.Minute,
		DocumentTimeout:  time.Second,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}
