package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToEnvironmentWhenFileAbsent(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://example-rpc.test")
	t.Setenv("DATABASE_URL", "postgresql://example/test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing-config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCEndpoint != "https://example-rpc.test" {
		t.Fatalf("unexpected rpc endpoint: %s", cfg.RPCEndpoint)
	}
	if cfg.PollIntervalMS != DefaultPollIntervalMS {
		t.Fatalf("expected default poll interval, got %d", cfg.PollIntervalMS)
	}
}

func TestLoadFileOverridesEnvironment(t *testing.T) {
	t.Setenv("SOLANA_RPC_URL", "https://env-rpc.test")

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := "rpc_endpoint = \"https://file-rpc.test\"\ndatabase_url = \"postgresql://file/test\"\nbatch_size = 250\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPCEndpoint != "https://file-rpc.test" {
		t.Fatalf("expected config file to win over environment, got %s", cfg.RPCEndpoint)
	}
	if cfg.BatchSize != 250 {
		t.Fatalf("expected batch_size 250, got %d", cfg.BatchSize)
	}
	if cfg.PollIntervalMS != DefaultPollIntervalMS {
		t.Fatalf("expected default poll interval to fill unset field, got %d", cfg.PollIntervalMS)
	}
}

func TestLoadEnvFileDoesNotOverrideExistingVars(t *testing.T) {
	t.Setenv("LOAD_ENV_FILE_TEST_KEY", "already-set")

	path := filepath.Join(t.TempDir(), ".env")
	contents := "LOAD_ENV_FILE_TEST_KEY=from-file\nANOTHER_KEY=value\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	LoadEnvFile(path)

	if got := os.Getenv("LOAD_ENV_FILE_TEST_KEY"); got != "already-set" {
		t.Fatalf("expected existing env var preserved, got %s", got)
	}
	if got := os.Getenv("ANOTHER_KEY"); got != "value" {
		t.Fatalf("expected new env var loaded from file, got %s", got)
	}
}
