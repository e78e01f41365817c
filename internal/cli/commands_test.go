package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danieljhkim/cloudinstall/internal/config"
)

// setupTestHome points the installation home at a temporary directory.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeOverrideEnv, home)
	return home
}

func TestConfigSetGet(t *testing.T) {
	home := setupTestHome(t)

	if _, err := run(t, "config", "set", config.KeyOpenstackPassword, "pass"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := run(t, "config", "get", config.KeyOpenstackPassword)
	if err != nil {
		t.Fatalf("config get error = %v", err)
	}
	if strings.TrimSpace(out) != "pass" {
		t.Errorf("config get = %q, want pass", out)
	}

	cfgFile := filepath.Join(home, ".cloud-install", "openstack", "config.yaml")
	info, err := os.Stat(cfgFile)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", cfgFile, err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file perm = %o, want 600", perm)
	}
}

func TestConfigSet_ParsesYAMLValues(t *testing.T) {
	setupTestHome(t)

	if _, err := run(t, "config", "set", config.KeyMAASCreds, "{api_host: 10.0.0.1, api_key: abc}"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := run(t, "config", "get", config.KeyMAASCreds, "--json")
	if err != nil {
		t.Fatalf("config get error = %v", err)
	}

	var got map[string]map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if got[config.KeyMAASCreds]["api_key"] != "abc" {
		t.Errorf("maascreds = %v", got[config.KeyMAASCreds])
	}
}

func TestConfigGet_Unset(t *testing.T) {
	setupTestHome(t)

	if _, err := run(t, "config", "get", "no_such_key"); err == nil {
		t.Error("expected error for an unset key")
	}
}

func TestConfigShow_IncludesDefaults(t *testing.T) {
	setupTestHome(t)

	out, err := run(t, "config", "show", "--json")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}
	if doc[config.KeyInstallType] != "single" {
		t.Errorf("install_type = %v, want single", doc[config.KeyInstallType])
	}
}

func TestConfig_InstallNamesAreSeparate(t *testing.T) {
	setupTestHome(t)

	if _, err := run(t, "config", "set", config.KeyInstallType, "multi", "--install-name", "lab"); err != nil {
		t.Fatalf("config set error = %v", err)
	}

	out, err := run(t, "config", "get", config.KeyInstallType)
	if err != nil {
		t.Fatalf("config get error = %v", err)
	}
	if strings.TrimSpace(out) != "single" {
		t.Errorf("default install changed: install_type = %q", out)
	}
}

func TestPathsCommand(t *testing.T) {
	home := setupTestHome(t)

	out, err := run(t, "paths", "--json", "--install-name", "test")
	if err != nil {
		t.Fatalf("paths error = %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", out, err)
	}

	root := filepath.Join(home, ".cloud-install", "test")
	if got["root"] != root {
		t.Errorf("root = %q, want %q", got["root"], root)
	}
	if got["home-env"] != "JUJU_HOME=~/.cloud-install/test/juju" {
		t.Errorf("home-env = %q", got["home-env"])
	}
	if got["home-env-expanded"] != "JUJU_HOME="+filepath.Join(root, "juju") {
		t.Errorf("home-env-expanded = %q", got["home-env-expanded"])
	}
	if _, err := os.Stat(filepath.Join(root, "local-charms")); err != nil {
		t.Errorf("expected local charm repository to be created: %v", err)
	}
}

func TestPathsCommand_InvalidInstallName(t *testing.T) {
	setupTestHome(t)

	if _, err := run(t, "paths", "--install-name", "../escape"); err == nil {
		t.Error("expected error for an invalid install name")
	}
}

func TestDeployCommand_RequiresCharm(t *testing.T) {
	setupTestHome(t)

	if _, err := run(t, "deploy"); err == nil {
		t.Error("expected error without a charm argument")
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"multi", "multi"},
		{"42", 42},
		{"true", true},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseValue(tt.raw); got != tt.want {
			t.Errorf("parseValue(%q) = %#v, want %#v", tt.raw, got, tt.want)
		}
	}

	m, ok := parseValue("{a: 1}").(map[string]any)
	if !ok || m["a"] != 1 {
		t.Errorf("parseValue mapping = %#v", parseValue("{a: 1}"))
	}
}

func TestDisplayValue(t *testing.T) {
	if got := displayValue("plain"); got != "plain" {
		t.Errorf("displayValue(string) = %q", got)
	}
	if got := displayValue(map[string]any{"a": 1}); got != "{a: 1}" {
		t.Errorf("displayValue(map) = %q", got)
	}
}
