package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for a missing file")
	}
	if cfg.Translator.BatchSize != defaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", defaultBatchSize, cfg.Translator.BatchSize)
	}
	if cfg.Workflow.WaitAttempts != defaultWaitAttempts {
		t.Fatalf("expected default wait attempts %d, got %d", defaultWaitAttempts, cfg.Workflow.WaitAttempts)
	}
	if len(cfg.Recognition.IgnorableExitCodes) != 1 || cfg.Recognition.IgnorableExitCodes[0] != IgnorableRecognitionExitCode {
		t.Fatalf("unexpected ignorable exit codes %v", cfg.Recognition.IgnorableExitCodes)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subflow.toml")
	content := `
[paths]
state_dir = "` + dir + `/state"
log_dir = "` + dir + `/logs"

[translator]
batch_size = 5
model = "demo"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected resolved path %q, got %q (exists=%v)", path, resolved, exists)
	}
	if cfg.Translator.BatchSize != 5 {
		t.Fatalf("expected batch size 5, got %d", cfg.Translator.BatchSize)
	}
	if !filepath.IsAbs(cfg.Paths.StateDir) {
		t.Fatalf("expected absolute state dir, got %q", cfg.Paths.StateDir)
	}
	if got := cfg.HistoryDBPath(); !strings.HasPrefix(got, cfg.Paths.StateDir) {
		t.Fatalf("history db %q not under state dir %q", got, cfg.Paths.StateDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"zero batch":   "[translator]\nbatch_size = 0\n",
		"bad url":      "[translator]\nbase_url = \"localhost\"\n",
		"neg interval": "[workflow]\nwait_interval_ms = -1\n",
		"zero waits":   "[workflow]\nwait_attempts = 0\n",
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "subflow.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("%s: write config: %v", name, err)
		}
		if _, _, _, err := Load(path); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestAPIKeyEnvOverride(t *testing.T) {
	t.Setenv("SUBFLOW_API_KEY", "from-env")
	cfg, _, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Translator.APIKey != "from-env" {
		t.Fatalf("expected env api key, got %q", cfg.Translator.APIKey)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly (exists=%v err=%v)", exists, err)
	}
}
