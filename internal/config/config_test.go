package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

// goodDocument mirrors a typical saved settings document.
func goodDocument() Document {
	return Document{
		"install_type":       "multi",
		"openstack_password": "ubuntu",
		"maascreds": map[string]any{
			"api_host": "10.0.0.2",
			"api_key":  "abc:def:ghi",
		},
	}
}

// newTestConfig creates a Config saving to a fresh temp install root.
func newTestConfig(t *testing.T) (*Config, *Paths) {
	t.Helper()

	paths := NewPaths("test", t.TempDir())
	return New(fsops.NewRealFS(), goodDocument(), paths.Config), paths
}

func TestNew_MergesOverDefaults(t *testing.T) {
	cfg := New(fsops.NewRealFS(), Document{"install_type": "multi", "extra": 1}, "")

	if got := cfg.GetString(KeyInstallType); got != "multi" {
		t.Errorf("install_type = %q, want explicit value to override default", got)
	}
	if got := cfg.GetString("openstack_release"); got != "icehouse" {
		t.Errorf("openstack_release = %q, want default to be kept", got)
	}
	if v, ok := cfg.Get("extra"); !ok || v != 1 {
		t.Errorf("extra = %v, %v", v, ok)
	}
}

func TestNew_TopLevelMergeReplacesNestedMappings(t *testing.T) {
	cfg := New(fsops.NewRealFS(), Document{
		KeyCharmConfig: map[string]any{"keystone": map[string]any{"admin-password": "x"}},
	}, "")

	cc := cfg.GetMap(KeyCharmConfig)
	if len(cc) != 1 {
		t.Fatalf("charm_config = %v", cc)
	}
	if _, ok := cc["keystone"]; !ok {
		t.Errorf("charm_config should be the overlay mapping, got %v", cc)
	}
}

func TestNew_DoesNotMutateCallerDocument(t *testing.T) {
	doc := Document{"a": "b"}
	cfg := New(fsops.NewRealFS(), doc, "")
	cfg.Set("a", "changed")

	if doc["a"] != "b" {
		t.Error("Set should not write through to the document passed to New")
	}
}

func TestConfig_Get(t *testing.T) {
	cfg, _ := newTestConfig(t)

	t.Run("unset key is absent", func(t *testing.T) {
		if v, ok := cfg.Get("landscapecreds"); ok || v != nil {
			t.Errorf("Get(unset) = %v, %v", v, ok)
		}
		if cfg.GetString("landscapecreds") != "" {
			t.Error("GetString(unset) should be empty")
		}
		if cfg.GetMap("landscapecreds") != nil {
			t.Error("GetMap(unset) should be nil")
		}
	})

	t.Run("GetMap of a scalar is nil", func(t *testing.T) {
		if cfg.GetMap("openstack_password") != nil {
			t.Error("GetMap(scalar) should be nil")
		}
	})
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		check func(t *testing.T, got *Config)
	}{
		{
			name:  "openstack password",
			key:   "openstack_password",
			value: "pass",
			check: func(t *testing.T, got *Config) {
				if got.GetString("openstack_password") != "pass" {
					t.Errorf("openstack_password = %q", got.GetString("openstack_password"))
				}
			},
		},
		{
			name:  "maas credentials",
			key:   "maascreds",
			value: map[string]any{"api_host": "127.0.0.1", "api_key": "1234567"},
			check: func(t *testing.T, got *Config) {
				creds := got.GetMap("maascreds")
				if creds["api_host"] != "127.0.0.1" || creds["api_key"] != "1234567" {
					t.Errorf("maascreds = %v", creds)
				}
			},
		},
		{
			name: "landscape credentials",
			key:  "landscapecreds",
			value: map[string]string{
				"admin_name":   "foo",
				"admin_email":  "foo@bar.com",
				"system_email": "foo@bar.com",
				"maas_server":  "127.0.0.1",
				"maas_apikey":  "123457",
			},
			check: func(t *testing.T, got *Config) {
				creds := got.GetMap("landscapecreds")
				want := map[string]string{
					"admin_name":   "foo",
					"admin_email":  "foo@bar.com",
					"system_email": "foo@bar.com",
					"maas_server":  "127.0.0.1",
					"maas_apikey":  "123457",
				}
				if len(creds) != len(want) {
					t.Fatalf("landscapecreds has %d fields, want %d: %v", len(creds), len(want), creds)
				}
				for k, v := range want {
					if creds[k] != v {
						t.Errorf("landscapecreds[%s] = %v, want %v", k, creds[k], v)
					}
				}
			},
		},
		{
			name:  "installer type",
			key:   "install_type",
			value: "multi",
			check: func(t *testing.T, got *Config) {
				if got.GetString("install_type") != "multi" || got.IsSingle() {
					t.Errorf("install_type = %q", got.GetString("install_type"))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, paths := newTestConfig(t)

			cfg.Set(tt.key, tt.value)
			if err := cfg.Save(); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			reloaded, err := Load(fsops.NewRealFS(), paths)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			tt.check(t, reloaded)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	t.Run("creates parent directories and restricts permissions", func(t *testing.T) {
		cfg, paths := newTestConfig(t)

		if err := cfg.Save(); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		info, err := os.Stat(paths.Config)
		if err != nil {
			t.Fatalf("config file missing: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("overwrites the existing file", func(t *testing.T) {
		cfg, paths := newTestConfig(t)
		cfg.Set("stale", "yes")
		if err := cfg.Save(); err != nil {
			t.Fatalf("first Save failed: %v", err)
		}

		fresh := New(fsops.NewRealFS(), Document{}, paths.Config)
		if err := fresh.Save(); err != nil {
			t.Fatalf("second Save failed: %v", err)
		}

		reloaded, err := Load(fsops.NewRealFS(), paths)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if _, ok := reloaded.Get("stale"); ok {
			t.Error("last save should win, stale key survived")
		}
	})

	t.Run("failure returns PersistenceError and keeps memory", func(t *testing.T) {
		tmpDir := t.TempDir()
		blocker := filepath.Join(tmpDir, "not-a-dir")
		if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
			t.Fatalf("failed to create blocker: %v", err)
		}

		cfg := New(fsops.NewRealFS(), Document{}, filepath.Join(blocker, "config.yaml"))
		cfg.Set("openstack_password", "pass")

		err := cfg.Save()
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			t.Fatalf("Save error = %v, want *PersistenceError", err)
		}
		if perr.Path != filepath.Join(blocker, "config.yaml") {
			t.Errorf("PersistenceError.Path = %q", perr.Path)
		}
		if cfg.GetString("openstack_password") != "pass" {
			t.Error("in-memory document should be intact after a failed save")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		paths := NewPaths("fresh", t.TempDir())

		cfg, err := Load(fsops.NewRealFS(), paths)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !cfg.IsSingle() {
			t.Error("default install_type should be single")
		}
		if cfg.Paths() != paths {
			t.Error("Paths() should return the paths Load was given")
		}
		if cfg.Path() != paths.Config {
			t.Errorf("Path() = %q, want %q", cfg.Path(), paths.Config)
		}
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		paths := NewPaths("broken", t.TempDir())
		if err := os.MkdirAll(paths.Root, 0755); err != nil {
			t.Fatalf("failed to create root: %v", err)
		}
		if err := os.WriteFile(paths.Config, []byte("install_type: [unclosed"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := Load(fsops.NewRealFS(), paths); err == nil {
			t.Error("Load should fail on invalid yaml")
		}
	})

	t.Run("loaded keys override defaults", func(t *testing.T) {
		paths := NewPaths("multi", t.TempDir())
		if err := os.MkdirAll(paths.Root, 0755); err != nil {
			t.Fatalf("failed to create root: %v", err)
		}
		if err := os.WriteFile(paths.Config, []byte("install_type: multi\n"), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		cfg, err := Load(fsops.NewRealFS(), paths)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.IsSingle() {
			t.Error("install_type from file should override default")
		}
		if cfg.GetString("openstack_release") != "icehouse" {
			t.Error("defaults not present in file should be kept")
		}
	})
}

func TestConfig_Document(t *testing.T) {
	cfg, _ := newTestConfig(t)

	doc := cfg.Document()
	doc["install_type"] = "changed"

	if cfg.GetString("install_type") != "multi" {
		t.Error("Document() should return a copy")
	}
}
