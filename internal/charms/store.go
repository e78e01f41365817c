package charms

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/danieljhkim/cloudinstall/internal/clock"
	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

// StoreDeployer deploys a charm from the charm store.
type StoreDeployer struct {
	fs      fsops.FS
	cfg     *config.Config
	paths   *config.Paths
	runner  execx.Runner
	opts    options
	charm   string
	series  string
	related []string
}

// NewStoreDeployer creates a StoreDeployer for charm on series, related to
// the given charms.
func NewStoreDeployer(
	fs fsops.FS,
	cfg *config.Config,
	paths *config.Paths,
	runner execx.Runner,
	charm, series string,
	related []string,
	opts ...Option,
) *StoreDeployer {
	return &StoreDeployer{
		fs:      fs,
		cfg:     cfg,
		paths:   paths,
		runner:  runner,
		opts:    newOptions(opts),
		charm:   charm,
		series:  series,
		related: slices.Clone(related),
	}
}

// Name returns the charm name.
func (s *StoreDeployer) Name() string {
	return s.charm
}

// Related returns the charms this charm is related to.
func (s *StoreDeployer) Related() []string {
	return slices.Clone(s.related)
}

// Deploy runs juju deploy for the charm-store charm. A juju failure is
// reported both on the result and as an *OrchestratorInvocationError.
func (s *StoreDeployer) Deploy(ctx context.Context, spec MachineSpec) (*DeployResult, error) {
	confFile, err := writeCharmConfig(s.fs, s.cfg, s.paths.CharmConfig, s.charm)
	if err != nil {
		return nil, err
	}

	args := []string{"deploy"}
	if c := spec.ConstraintsArg(); c != "" {
		args = append(args, "--constraints", c)
	}
	if spec.Placement != "" {
		args = append(args, "--to", spec.Placement)
	}
	if confFile != "" {
		args = append(args, "--config", confFile)
	}
	args = append(args, fmt.Sprintf("cs:%s/%s", s.series, s.charm))

	cmd := execx.Command{
		Name: "juju",
		Args: args,
		Env:  []string{s.paths.HomeEnv(true)},
	}

	sw := clock.Start(s.opts.clock)
	result := &DeployResult{Charm: s.charm, Source: SourceStore, Command: cmd, StartedAt: sw.Started()}
	s.opts.logger.Debug("deploying from charm store", "charm", s.charm, "cmd", cmd.String())

	res, err := s.run(ctx, cmd)
	result.Duration = sw.Elapsed()
	if res != nil {
		result.Output = res.Output
	}
	if err != nil {
		ierr := invocationError(cmd, res, err)
		result.Failed = true
		result.Err = ierr
		return result, ierr
	}
	return result, nil
}

// SetRelations relates the charm to every charm in Related.
func (s *StoreDeployer) SetRelations(ctx context.Context) error {
	return s.AddRelations(ctx, s.charm, s.related)
}

// AddRelations runs juju add-relation between charm and each related
// charm. Every relation is attempted; failures are joined.
func (s *StoreDeployer) AddRelations(ctx context.Context, charm string, related []string) error {
	var errs []error
	for _, other := range related {
		cmd := execx.Command{
			Name: "juju",
			Args: []string{"add-relation", charm, other},
			Env:  []string{s.paths.HomeEnv(true)},
		}
		res, err := s.run(ctx, cmd)
		if err != nil {
			ierr := invocationError(cmd, res, err)
			s.opts.logger.Warn("add-relation failed", "charm", charm, "related", other, "rc", ierr.ExitCode, "out", ierr.Output)
			errs = append(errs, ierr)
			continue
		}
		s.opts.logger.Debug("added relation", "charm", charm, "related", other)
	}
	return errors.Join(errs...)
}

func (s *StoreDeployer) run(ctx context.Context, cmd execx.Command) (*execx.Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.deployTimeout)
	defer cancel()
	return s.runner.Run(runCtx, cmd)
}
