// Package charms deploys charms with juju.
//
// StoreDeployer is the default path: it deploys a charm from the charm
// store. GlanceSimplestreamsSync overrides that path for one charm by
// installing the upstream stable branch into a local repository first, and
// falls back to the charm store whenever that preparation fails.
package charms

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/danieljhkim/cloudinstall/internal/clock"
	"github.com/danieljhkim/cloudinstall/internal/execx"
)

const defaultDeployTimeout = 30 * time.Minute

// MachineSpec says where a charm should run. It is forwarded to juju as-is.
type MachineSpec struct {
	// Placement is the --to target, e.g. "lxc:1".
	Placement string

	// Constraints are passed as --constraints key=value pairs.
	Constraints map[string]string
}

// ConstraintsArg renders Constraints as a single juju constraints value,
// sorted by key.
func (m MachineSpec) ConstraintsArg() string {
	keys := slices.Sorted(maps.Keys(m.Constraints))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+m.Constraints[k])
	}
	return strings.Join(parts, " ")
}

// DeploySource says where a deployed charm came from.
type DeploySource string

const (
	SourceLocal DeploySource = "local"
	SourceStore DeploySource = "store"
)

// DeployResult describes one deploy attempt.
type DeployResult struct {
	// Charm is the deployed charm name.
	Charm string

	// Source is where the charm was deployed from.
	Source DeploySource

	// Failed is set when juju could not deploy the charm. Err holds the
	// reason.
	Failed bool
	Err    error

	// Command is the juju invocation.
	Command execx.Command

	// Output is juju's combined output.
	Output string

	// AttemptID tags the log records of this attempt.
	AttemptID string

	// StartedAt and Duration time the whole attempt, including a fallback.
	StartedAt time.Time
	Duration  time.Duration

	// States is the path taken through the override state machine. Empty
	// for a plain store deploy.
	States []State
}

// Deployer deploys a charm onto a machine.
type Deployer interface {
	Deploy(ctx context.Context, spec MachineSpec) (*DeployResult, error)
}

// RelationAdder adds juju relations between charm and each related charm.
type RelationAdder interface {
	AddRelations(ctx context.Context, charm string, related []string) error
}

// Charm is a deployable charm with the charms it relates to.
type Charm interface {
	Deployer

	// Name is the charm name.
	Name() string

	// Related lists the charms this charm is related to.
	Related() []string

	// SetRelations adds the relations to every related charm.
	SetRelations(ctx context.Context) error
}

type options struct {
	logger        *slog.Logger
	clock         clock.Clock
	deployTimeout time.Duration
}

// Option configures a deployer.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock deploy attempts are timed with.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithDeployTimeout bounds each juju invocation.
func WithDeployTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.deployTimeout = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:        slog.Default(),
		clock:         clock.System{},
		deployTimeout: defaultDeployTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
