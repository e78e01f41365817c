package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieljhkim/cloudinstall/internal/artifact"
	"github.com/danieljhkim/cloudinstall/internal/charms"
	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

// env bundles the real implementations a command needs for one
// installation.
type env struct {
	fs     fsops.FS
	paths  *config.Paths
	cfg    *config.Config
	runner execx.Runner
	logger *slog.Logger
}

// newEnv resolves the installation named by --install-name, creates its
// directories and loads its settings.
func newEnv(cmd *cobra.Command) (*env, error) {
	paths, err := config.DefaultPaths(installName)
	if err != nil {
		return nil, fmt.Errorf("failed to get config paths: %w", err)
	}

	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	fs := fsops.NewRealFS()
	cfg, err := config.Load(fs, paths)
	if err != nil {
		return nil, err
	}

	return &env{
		fs:     fs,
		paths:  paths,
		cfg:    cfg,
		runner: execx.NewRealRunner(),
		logger: newLogger(cmd.ErrOrStderr(), debug),
	}, nil
}

// newLogger returns a text logger on w; debug lowers the level to Debug.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// charmOptions are the deploy settings shared by every charm.
type charmOptions struct {
	series  string
	related []string
	digest  string
	timeout time.Duration
}

// newCharm builds the deployer for name. glance-simplestreams-sync gets the
// local-repository override with the charm store as fallback; every other
// charm deploys from the charm store.
func (e *env) newCharm(name string, o charmOptions) charms.Charm {
	copts := []charms.Option{
		charms.WithLogger(e.logger),
		charms.WithDeployTimeout(o.timeout),
	}

	if name != charms.GlanceSimplestreamsSyncName {
		return charms.NewStoreDeployer(e.fs, e.cfg, e.paths, e.runner, name, o.series, o.related, copts...)
	}

	store := charms.NewStoreDeployer(e.fs, e.cfg, e.paths, e.runner, name, o.series, nil, copts...)

	digest := o.digest
	if digest == "" {
		digest = e.cfg.GetString(config.KeyGlanceDigest)
	}
	installer := artifact.NewInstaller(
		e.fs,
		artifact.NewHTTPFetcher(nil),
		e.runner,
		artifact.GlanceSimplestreamsSync,
		o.series,
		artifact.WithLogger(e.logger),
		artifact.WithExpectedDigest(digest),
	)

	return charms.NewGlanceSimplestreamsSync(e.fs, e.cfg, e.paths, installer, e.runner, store, store, copts...)
}

// outputJSON writes a value as indented JSON to w.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
