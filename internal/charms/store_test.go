package charms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

func newStoreDeployer(t *testing.T, runner execx.Runner) (*StoreDeployer, *config.Paths, *config.Config) {
	t.Helper()
	fs := fsops.NewRealFS()
	paths := config.NewPaths("test", t.TempDir())
	require.NoError(t, paths.EnsureDirectories())
	cfg := config.New(fs, nil, paths.Config)
	d := NewStoreDeployer(fs, cfg, paths, runner, "keystone", "trusty", []string{"mysql", "rabbitmq-server"},
		WithLogger(quietLogger()))
	return d, paths, cfg
}

func TestMachineSpec_ConstraintsArg(t *testing.T) {
	tests := []struct {
		name string
		spec MachineSpec
		want string
	}{
		{"empty", MachineSpec{}, ""},
		{"single", MachineSpec{Constraints: map[string]string{"mem": "2G"}}, "mem=2G"},
		{"sorted", MachineSpec{Constraints: map[string]string{"mem": "2G", "cpu-cores": "2", "arch": "amd64"}}, "arch=amd64 cpu-cores=2 mem=2G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.spec.ConstraintsArg())
		})
	}
}

func TestStoreDeployer_Deploy(t *testing.T) {
	t.Run("deploys the charm-store charm", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		d, paths, _ := newStoreDeployer(t, runner)

		result, err := d.Deploy(context.Background(), lxcSpec)
		require.NoError(t, err)

		assert.False(t, result.Failed)
		assert.Equal(t, SourceStore, result.Source)
		require.Len(t, runner.Calls, 1)
		assert.Equal(t, []string{
			"juju", "deploy",
			"--constraints", "mem=1G",
			"--to", "lxc:1",
			"cs:trusty/keystone",
		}, runner.Calls[0].Argv())
		assert.Equal(t, []string{"JUJU_HOME=" + paths.JujuHome}, runner.Calls[0].Env)
	})

	t.Run("omits empty placement and constraints", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		d, _, _ := newStoreDeployer(t, runner)

		_, err := d.Deploy(context.Background(), MachineSpec{})
		require.NoError(t, err)

		require.Len(t, runner.Calls, 1)
		assert.Equal(t, []string{"deploy", "cs:trusty/keystone"}, runner.Calls[0].Args)
	})

	t.Run("adds config for configured charms", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		d, paths, cfg := newStoreDeployer(t, runner)
		cfg.Set(config.KeyCharmConfig, map[string]any{"keystone": map[string]any{"admin-password": "pw"}})

		_, err := d.Deploy(context.Background(), lxcSpec)
		require.NoError(t, err)

		assert.Contains(t, runner.Calls[0].Args, "--config")
		assert.Contains(t, runner.Calls[0].Args, paths.CharmConfig)
	})

	t.Run("ignores config for other charms", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		d, _, cfg := newStoreDeployer(t, runner)
		cfg.Set(config.KeyCharmConfig, map[string]any{"nova-compute": map[string]any{"virt-type": "kvm"}})

		_, err := d.Deploy(context.Background(), lxcSpec)
		require.NoError(t, err)

		assert.NotContains(t, runner.Calls[0].Args, "--config")
	})

	t.Run("juju failure is an invocation error", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		runner.Fail("juju", 2, "ERROR charm not found")
		d, _, _ := newStoreDeployer(t, runner)

		result, err := d.Deploy(context.Background(), lxcSpec)

		var ierr *OrchestratorInvocationError
		require.ErrorAs(t, err, &ierr)
		assert.Equal(t, 2, ierr.ExitCode)
		assert.Contains(t, ierr.Error(), "ERROR charm not found")
		require.NotNil(t, result)
		assert.True(t, result.Failed)
	})
}

func TestStoreDeployer_SetRelations(t *testing.T) {
	t.Run("relates every charm", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		d, _, _ := newStoreDeployer(t, runner)

		require.NoError(t, d.SetRelations(context.Background()))

		require.Len(t, runner.Calls, 2)
		assert.Equal(t, []string{"add-relation", "keystone", "mysql"}, runner.Calls[0].Args)
		assert.Equal(t, []string{"add-relation", "keystone", "rabbitmq-server"}, runner.Calls[1].Args)
	})

	t.Run("attempts all relations and joins failures", func(t *testing.T) {
		runner := execx.NewFakeRunner()
		runner.Fail("juju", 1, "relation exists")
		d, _, _ := newStoreDeployer(t, runner)

		err := d.AddRelations(context.Background(), "glance", []string{"keystone", "mysql"})

		require.Error(t, err)
		assert.Len(t, runner.Calls, 2)
		var ierr *OrchestratorInvocationError
		assert.ErrorAs(t, err, &ierr)
	})
}
