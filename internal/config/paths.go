// Package config manages cloud-install settings and filesystem paths.
//
// Every installation has its own root under the user's home directory,
// ~/.cloud-install/<install-name>/, which holds the settings document
// (config.yaml), the juju home (juju/) and the local charm repository
// (local-charms/). The home directory can be overridden with the
// CLOUD_INSTALL_HOME environment variable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

const (
	// Product names the per-user install directory: ~/.<Product>-install.
	Product = "cloud"

	// DefaultInstallName is used when no install name is given.
	DefaultInstallName = "openstack"

	// HomeEnvVar is the variable juju reads its home directory from.
	HomeEnvVar = "JUJU_HOME"

	// HomeOverrideEnv overrides the user's home directory.
	HomeOverrideEnv = "CLOUD_INSTALL_HOME"

	// binPath is the system-wide directory for additional tools.
	binPath = "/usr/share/openstack/bin"
)

// ErrInvalidInstallName is returned when an install name cannot be used as
// a single path component.
var ErrInvalidInstallName = errors.New("invalid install name")

// CfgPath returns the config root for installName under home.
func CfgPath(installName, home string) string {
	return filepath.Join(home, "."+Product+"-install", installName)
}

// BinPath returns the additional tools directory. It does not depend on
// the install name.
func BinPath() string {
	return binPath
}

// Paths contains all the filesystem paths used by one installation.
type Paths struct {
	// InstallName is the installation these paths belong to.
	InstallName string

	// Home is the user's home directory
	Home string

	// Root is the config root (~/.cloud-install/<install-name>)
	Root string

	// Bin is the additional tools directory
	Bin string

	// JujuHome is the juju home directory (<root>/juju)
	JujuHome string

	// JujuEnvironments is the juju environments descriptor
	JujuEnvironments string

	// LocalCharms is the staging directory for locally installed charms
	LocalCharms string

	// Config is the path to the settings document
	Config string

	// CharmConfig is the generated per-charm settings file passed to juju
	CharmConfig string
}

// NewPaths derives the paths of installName under home.
func NewPaths(installName, home string) *Paths {
	root := CfgPath(installName, home)
	jujuHome := filepath.Join(root, "juju")

	return &Paths{
		InstallName:      installName,
		Home:             home,
		Root:             root,
		Bin:              BinPath(),
		JujuHome:         jujuHome,
		JujuEnvironments: filepath.Join(jujuHome, "environments.yaml"),
		LocalCharms:      filepath.Join(root, "local-charms"),
		Config:           filepath.Join(root, "config.yaml"),
		CharmConfig:      filepath.Join(root, "charmconf.yaml"),
	}
}

// DefaultPaths returns the paths of installName under the current user's
// home directory. The home directory can be overridden with
// CLOUD_INSTALL_HOME.
func DefaultPaths(installName string) (*Paths, error) {
	if err := fsops.NewRealFS().ValidateIdentifier(installName); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidInstallName, installName, err)
	}

	home := os.Getenv(HomeOverrideEnv)
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		home = h
	}

	return NewPaths(installName, home), nil
}

// HomeEnv returns the JUJU_HOME assignment for this installation. With
// expand set the value is the absolute juju home; otherwise it is written
// relative to "~".
func (p *Paths) HomeEnv(expand bool) string {
	if expand {
		return HomeEnvVar + "=" + p.JujuHome
	}

	rel, err := filepath.Rel(p.Home, p.JujuHome)
	if err != nil {
		return HomeEnvVar + "=" + p.JujuHome
	}
	return HomeEnvVar + "=" + filepath.Join("~", rel)
}

// EnsureDirectories creates all necessary directories if they don't exist.
// Root holds credentials and is created owner-only.
func (p *Paths) EnsureDirectories() error {
	if err := os.MkdirAll(p.Root, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", p.Root, err)
	}

	for _, dir := range []string{p.JujuHome, p.LocalCharms} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
