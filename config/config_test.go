package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AIRC_REGISTRY", "AIRC_HANDLE", "AIRC_STORAGE_ROOT", "AIRC_SIGN_REQUESTS"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Registry != DefaultRegistry {
		t.Fatalf("registry: got %q want %q", cfg.Registry, DefaultRegistry)
	}
	if home, err := os.UserHomeDir(); err == nil {
		if want := filepath.Join(home, ".airc"); cfg.StorageRoot != want {
			t.Fatalf("storage root: got %q want %q", cfg.StorageRoot, want)
		}
	}
	if cfg.SignRequests {
		t.Fatal("SignRequests should default to false")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "registry: https://registry.example/\nhandle: alice\nsignRequests: true\nstorageRoot: " + dir + "\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry != "https://registry.example" {
		t.Fatalf("registry not trimmed: got %q", cfg.Registry)
	}
	if cfg.Handle != "alice" || !cfg.SignRequests || cfg.StorageRoot != dir {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for an explicitly named missing file")
	}
}

func TestLoadMissingDefaultFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AIRC_STORAGE_ROOT", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry != DefaultRegistry {
		t.Fatalf("registry: got %q", cfg.Registry)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("registry: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("registry: https://file.example\nhandle: alice\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("AIRC_REGISTRY", "https://env.example")
	t.Setenv("AIRC_HANDLE", "bob")
	t.Setenv("AIRC_STORAGE_ROOT", dir)
	t.Setenv("AIRC_SIGN_REQUESTS", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry != "https://env.example" || cfg.Handle != "bob" || cfg.StorageRoot != dir || !cfg.SignRequests {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadDefaultFileUnderEnvStorageRoot(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	t.Setenv("AIRC_STORAGE_ROOT", root)
	yaml := "handle: alice\nregistry: https://file.example\n"
	if err := os.WriteFile(filepath.Join(root, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Handle != "alice" || cfg.Registry != "https://file.example" {
		t.Fatalf("config file under AIRC_STORAGE_ROOT not read: %+v", cfg)
	}

	// Env still wins over the file it located.
	t.Setenv("AIRC_REGISTRY", "https://env.example")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry != "https://env.example" {
		t.Fatalf("env override lost to file: %+v", cfg)
	}
}

func TestEnvSignRequestsIgnoresGarbage(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AIRC_STORAGE_ROOT", t.TempDir())
	t.Setenv("AIRC_SIGN_REQUESTS", "definitely")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SignRequests {
		t.Fatal("unparsable AIRC_SIGN_REQUESTS should be ignored")
	}
}

func TestKeyDirs(t *testing.T) {
	cfg := Config{StorageRoot: "/srv/airc"}
	if got := cfg.SigningKeyDir(); got != filepath.Join("/srv/airc", "keys") {
		t.Fatalf("SigningKeyDir: got %q", got)
	}
	if got := cfg.RecoveryKeyDir(); got != filepath.Join("/srv/airc", "recovery") {
		t.Fatalf("RecoveryKeyDir: got %q", got)
	}
}
