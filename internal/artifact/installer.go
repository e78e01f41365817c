// Package artifact downloads upstream charm tarballs and installs them into
// a local charm repository laid out as <repo>/<series>/<charm>, the layout
// `juju deploy --repository` expects.
package artifact

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
	"github.com/danieljhkim/cloudinstall/internal/hash"
)

const (
	// TarballName is the staged file name of a downloaded tarball.
	TarballName = "stable.tar.gz"

	defaultFetchTimeout   = 5 * time.Minute
	defaultExtractTimeout = 2 * time.Minute
)

// Source describes where a charm's stable tarball comes from.
type Source struct {
	// URL of the tarball.
	URL string

	// ExtractedPrefix is the top-level directory name of the extracted
	// tarball, without the trailing commit hash.
	ExtractedPrefix string

	// Charm is the charm name the tarball is installed as.
	Charm string
}

// GlanceSimplestreamsSync is the stable branch of the
// glance-simplestreams-sync charm on GitHub.
var GlanceSimplestreamsSync = Source{
	URL:             "https://api.github.com/repos/Ubuntu-Solutions-Engineering/glance-simplestreams-sync-charm/tarball/stable",
	ExtractedPrefix: "Ubuntu-Solutions-Engineering-glance-simplestreams-sync-charm-",
	Charm:           "glance-simplestreams-sync",
}

// Installer stages a Source into a local charm repository.
type Installer struct {
	fs      fsops.FS
	fetcher Fetcher
	runner  execx.Runner
	hasher  hash.Hasher
	logger  *slog.Logger

	source         Source
	series         string
	expectedDigest string
	fetchTimeout   time.Duration
	extractTimeout time.Duration
}

// Option configures an Installer.
type Option func(*Installer)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(i *Installer) {
		i.logger = l
	}
}

// WithExpectedDigest pins the SHA-256 the downloaded tarball must have.
func WithExpectedDigest(digest string) Option {
	return func(i *Installer) {
		i.expectedDigest = digest
	}
}

// WithHasher replaces the SHA-256 hasher.
func WithHasher(h hash.Hasher) Option {
	return func(i *Installer) {
		i.hasher = h
	}
}

// WithTimeouts bounds the download and the extraction separately. Zero
// leaves a default in place.
func WithTimeouts(fetch, extract time.Duration) Option {
	return func(i *Installer) {
		if fetch > 0 {
			i.fetchTimeout = fetch
		}
		if extract > 0 {
			i.extractTimeout = extract
		}
	}
}

// NewInstaller creates an Installer for source targeting series.
func NewInstaller(fs fsops.FS, fetcher Fetcher, runner execx.Runner, source Source, series string, opts ...Option) *Installer {
	i := &Installer{
		fs:             fs,
		fetcher:        fetcher,
		runner:         runner,
		hasher:         hash.NewFSHasher(fs),
		logger:         slog.Default(),
		source:         source,
		series:         series,
		fetchTimeout:   defaultFetchTimeout,
		extractTimeout: defaultExtractTimeout,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Source returns the source this Installer installs.
func (i *Installer) Source() Source {
	return i.source
}

// Series returns the series charms are installed under.
func (i *Installer) Series() string {
	return i.series
}

// Destination is where the charm ends up inside repoDir.
func (i *Installer) Destination(repoDir string) string {
	return filepath.Join(repoDir, i.series, i.source.Charm)
}

// lockPath is the lock file guarding one destination inside stagingDir.
func (i *Installer) lockPath(stagingDir string) string {
	return filepath.Join(stagingDir, fmt.Sprintf(".%s-%s.lock", i.series, i.source.Charm))
}

// DownloadStable fetches the tarball into stagingDir, extracts it and moves
// the extracted charm to Destination(stagingDir). It returns stagingDir,
// the local repository to deploy from.
//
// Nothing is retried and nothing is cleaned up on failure: a partial
// download or extraction stays in stagingDir. Concurrent calls for the same
// staging dir and series are serialized with a file lock.
func (i *Installer) DownloadStable(ctx context.Context, stagingDir string) (string, error) {
	if err := i.fs.MkdirAll(stagingDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	lock, err := fsops.Lock(ctx, i.lockPath(stagingDir))
	if err != nil {
		return "", err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			i.logger.Warn("failed to release staging lock", "path", lock.Path(), "error", err)
		}
	}()

	tarball, err := i.download(ctx, stagingDir)
	if err != nil {
		return "", err
	}

	digest, err := hash.Verify(i.hasher, tarball, i.expectedDigest)
	if err != nil {
		return "", &VerifyError{Path: tarball, Err: err}
	}
	i.logger.Debug("downloaded charm tarball", "charm", i.source.Charm, "path", tarball, "sha256", digest)

	if err := i.extract(ctx, tarball, stagingDir); err != nil {
		return "", err
	}

	src, err := i.discover(stagingDir)
	if err != nil {
		return "", err
	}

	dest := i.Destination(stagingDir)
	if err := i.replace(src, dest); err != nil {
		return "", err
	}

	i.logger.Debug("installed local charm", "charm", i.source.Charm, "path", dest)
	return stagingDir, nil
}

// download writes the fetched tarball verbatim into stagingDir.
func (i *Installer) download(ctx context.Context, stagingDir string) (string, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, i.fetchTimeout)
	defer cancel()

	body, err := i.fetcher.Fetch(fetchCtx, i.source.URL)
	if err != nil {
		return "", err
	}

	tarball := filepath.Join(stagingDir, TarballName)
	if err := i.fs.WriteFile(tarball, body, 0644); err != nil {
		return "", fmt.Errorf("failed to write tarball: %w", err)
	}
	return tarball, nil
}

// extract unpacks tarball into dir with tar.
func (i *Installer) extract(ctx context.Context, tarball, dir string) error {
	extractCtx, cancel := context.WithTimeout(ctx, i.extractTimeout)
	defer cancel()

	res, err := i.runner.Run(extractCtx, execx.Command{
		Name: "tar",
		Args: []string{"-C", dir, "-zxf", tarball},
	})
	if err != nil {
		e := &ExtractionError{Archive: tarball, ExitCode: -1, Err: err}
		if res != nil {
			e.ExitCode = res.ExitCode
			e.Output = res.Output
		}
		i.logger.Warn("error untarring", "rc", e.ExitCode, "out", e.Output)
		return e
	}
	return nil
}

// discover returns the single extracted directory. The name ends in the
// commit hash, so it is found by prefix.
func (i *Installer) discover(stagingDir string) (string, error) {
	pattern := filepath.Join(stagingDir, i.source.ExtractedPrefix+"*")
	matches, err := i.fs.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("failed to glob %s: %w", pattern, err)
	}
	if len(matches) != 1 {
		i.logger.Warn("error finding downloaded stable charm", "matches", matches)
		return "", &DiscoveryError{Pattern: pattern, Matches: matches}
	}
	return matches[0], nil
}

// replace moves src to dest, removing an existing dest first. The removal
// and the rename are separate steps.
func (i *Installer) replace(src, dest string) error {
	exists, err := i.fs.Exists(dest)
	if err != nil {
		return fmt.Errorf("failed to check destination: %w", err)
	}
	if exists {
		if err := i.fs.RemoveAll(dest); err != nil {
			return fmt.Errorf("failed to remove existing destination: %w", err)
		}
	}

	if err := i.fs.Rename(src, dest); err != nil {
		return fmt.Errorf("failed to move charm into place: %w", err)
	}
	return nil
}
