package charms

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/danieljhkim/cloudinstall/internal/artifact"
	"github.com/danieljhkim/cloudinstall/internal/clock"
	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

const (
	// GlanceSimplestreamsSyncName is the charm the override deploys.
	GlanceSimplestreamsSyncName = "glance-simplestreams-sync"

	// RabbitMQServer is related once the local charm is installed.
	RabbitMQServer = "rabbitmq-server"
)

// LocalInstaller installs a charm into a local charm repository.
// *artifact.Installer implements it.
type LocalInstaller interface {
	DownloadStable(ctx context.Context, stagingDir string) (string, error)
	Destination(repoDir string) string
	Series() string
}

// GlanceSimplestreamsSync deploys glance-simplestreams-sync from the
// upstream stable branch instead of the charm store. Any failure to prepare
// the local charm falls back to the charm-store deployer.
type GlanceSimplestreamsSync struct {
	fs        fsops.FS
	cfg       *config.Config
	paths     *config.Paths
	installer LocalInstaller
	runner    execx.Runner
	fallback  Deployer
	relations RelationAdder
	opts      options
	related   []string
}

// NewGlanceSimplestreamsSync creates the override. fallback deploys the
// charm-store version and relations adds juju relations.
func NewGlanceSimplestreamsSync(
	fs fsops.FS,
	cfg *config.Config,
	paths *config.Paths,
	installer LocalInstaller,
	runner execx.Runner,
	fallback Deployer,
	relations RelationAdder,
	opts ...Option,
) *GlanceSimplestreamsSync {
	return &GlanceSimplestreamsSync{
		fs:        fs,
		cfg:       cfg,
		paths:     paths,
		installer: installer,
		runner:    runner,
		fallback:  fallback,
		relations: relations,
		opts:      newOptions(opts),
		related:   []string{"keystone"},
	}
}

// Name returns the charm name.
func (g *GlanceSimplestreamsSync) Name() string {
	return GlanceSimplestreamsSyncName
}

// Related returns the charms this charm is related to.
func (g *GlanceSimplestreamsSync) Related() []string {
	return slices.Clone(g.related)
}

// Deploy installs the stable branch into the local charm repository and
// deploys it from there. When the install fails for any reason the
// charm-store deployer runs instead and its result and error are returned
// as they are, with only the attempt ID, States and timing filled in.
//
// A juju failure after a successful install is reported on the result with
// Failed set and a nil error.
func (g *GlanceSimplestreamsSync) Deploy(ctx context.Context, spec MachineSpec) (*DeployResult, error) {
	attempt := uuid.NewString()
	sw := clock.Start(g.opts.clock)
	log := g.opts.logger.With("charm", GlanceSimplestreamsSyncName, "attempt", attempt)
	t := newTracker()

	if err := t.advance(StateTryOverride); err != nil {
		return nil, err
	}
	log.Debug("downloading stable branch")

	repo, err := g.installer.DownloadStable(ctx, g.paths.LocalCharms)
	if err != nil {
		log.Warn("problem downloading stable branch, falling back to charm store",
			"kind", artifact.Kind(err), "error", err)
		return g.deployFallback(ctx, spec, t, attempt, sw)
	}

	if err := t.advance(StateSuccess); err != nil {
		return nil, err
	}
	result := g.deployLocal(ctx, log, spec, repo)
	result.AttemptID = attempt
	if !result.Failed {
		log.Info("deployed from local repository", "repository", repo)
	}

	if err := t.advance(StateDone); err != nil {
		return nil, err
	}
	result.States = t.path()
	result.StartedAt = sw.Started()
	result.Duration = sw.Elapsed()
	return result, nil
}

func (g *GlanceSimplestreamsSync) deployFallback(ctx context.Context, spec MachineSpec, t *tracker, attempt string, sw clock.Stopwatch) (*DeployResult, error) {
	if err := t.advance(StateFallbackDefault); err != nil {
		return nil, err
	}
	result, err := g.fallback.Deploy(ctx, spec)
	if terr := t.advance(StateDone); terr != nil {
		return nil, terr
	}
	if result != nil {
		result.AttemptID = attempt
		result.States = t.path()
		result.StartedAt = sw.Started()
		result.Duration = sw.Elapsed()
	}
	return result, err
}

func (g *GlanceSimplestreamsSync) deployLocal(ctx context.Context, log *slog.Logger, spec MachineSpec, repo string) *DeployResult {
	result := &DeployResult{Charm: GlanceSimplestreamsSyncName, Source: SourceLocal}

	args := []string{
		"deploy",
		"--repository=" + repo,
		fmt.Sprintf("local:%s/%s", g.installer.Series(), GlanceSimplestreamsSyncName),
	}
	if c := spec.ConstraintsArg(); c != "" {
		args = append(args, "--constraints", c)
	}
	if spec.Placement != "" {
		args = append(args, "--to", spec.Placement)
	}

	confFile, err := writeCharmConfig(g.fs, g.cfg, g.paths.CharmConfig, GlanceSimplestreamsSyncName)
	if err != nil {
		result.Failed = true
		result.Err = err
		log.Warn("could not write charm config", "path", g.paths.CharmConfig, "error", err)
		return result
	}
	if confFile != "" {
		args = append(args, "--config", confFile)
	}

	cmd := execx.Command{
		Name: "juju",
		Args: args,
		Env:  []string{g.paths.HomeEnv(true)},
	}
	result.Command = cmd

	runCtx, cancel := context.WithTimeout(ctx, g.opts.deployTimeout)
	defer cancel()

	log.Debug("running juju", "cmd", cmd.String())
	res, err := g.runner.Run(runCtx, cmd)
	if res != nil {
		result.Output = res.Output
	}
	if err != nil {
		ierr := invocationError(cmd, res, err)
		result.Failed = true
		result.Err = ierr
		log.Warn("juju deploy returned non-zero", "rc", ierr.ExitCode, "out", ierr.Output)
	}
	return result
}

// SetRelations relates the charm to keystone, and to rabbitmq-server once
// the local charm has been installed. Calling it again adds nothing new to
// the related list.
func (g *GlanceSimplestreamsSync) SetRelations(ctx context.Context) error {
	installed, err := g.fs.Exists(g.installer.Destination(g.paths.LocalCharms))
	if err != nil {
		return fmt.Errorf("failed to check local charm: %w", err)
	}
	if installed && !slices.Contains(g.related, RabbitMQServer) {
		g.related = append(g.related, RabbitMQServer)
	}
	return g.relations.AddRelations(ctx, GlanceSimplestreamsSyncName, slices.Clone(g.related))
}
