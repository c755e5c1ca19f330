package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Namespace != "UserTags" {
		t.Fatalf("Namespace = %q, want %q", cfg.Namespace, "UserTags")
	}
	if cfg.Backend != BackendSQLite {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, BackendSQLite)
	}
	if cfg.Locale != "en" {
		t.Fatalf("Locale = %q, want %q", cfg.Locale, "en")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"backend": "badger", "locale": "sv"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend != BackendBadger {
		t.Fatalf("Backend = %q, want %q", cfg.Backend, BackendBadger)
	}
	if cfg.Locale != "sv" {
		t.Fatalf("Locale = %q, want %q", cfg.Locale, "sv")
	}
	if cfg.Namespace != "UserTags" {
		t.Fatalf("Namespace = %q, want default", cfg.Namespace)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_DisabledTools(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{"disabled_tools": ["tag_delete", "tag_rename"]}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.DisabledTools) != 2 {
		t.Fatalf("DisabledTools length = %d, want 2", len(cfg.DisabledTools))
	}
	if cfg.DisabledTools[0] != "tag_delete" {
		t.Errorf("DisabledTools[0] = %q, want %q", cfg.DisabledTools[0], "tag_delete")
	}
}

func TestLoadWithRepo_BothPresent(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalConfig := `{"namespace": "Global", "disabled_tools": ["tag_delete"]}`
	if err := os.WriteFile(filepath.Join(globalDir, "config.json"), []byte(globalConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoDir := filepath.Join(repoRoot, ".usertags")
	if err := os.MkdirAll(repoDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	repoConfig := `{"namespace": "Repo", "disabled_tools": ["tag_rename"]}`
	if err := os.WriteFile(filepath.Join(repoDir, "config.json"), []byte(repoConfig), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	nested := filepath.Join(repoRoot, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, nested)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}

	if cfg.Namespace != "Repo" {
		t.Errorf("Namespace = %q, want Repo (repo override)", cfg.Namespace)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want merged list of 2", cfg.DisabledTools)
	}
}

func TestLoadWithRepo_NeitherPresent(t *testing.T) {
	cfg, err := LoadWithRepo(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %q, want default", cfg.Backend)
	}
}

func TestMerge_Booleans(t *testing.T) {
	base := &Config{AllowUnsafePaths: true}
	overlay := &Config{}

	if !Merge(base, overlay).AllowUnsafePaths {
		t.Error("AllowUnsafePaths should stay true when base sets it")
	}
}

func TestMergeStringSlice_Dedup(t *testing.T) {
	got := mergeStringSlice([]string{" a ", "b"}, []string{"b", "", "c"})
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("mergeStringSlice = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if mergeStringSlice(nil, nil) != nil {
		t.Error("empty merge should return nil")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg = DefaultConfig()
	cfg.Namespace = " "
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for blank namespace")
	}
}
