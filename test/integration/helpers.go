package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/danieljhkim/cloudinstall/internal/artifact"
	"github.com/danieljhkim/cloudinstall/internal/charms"
	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/execx"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

// testFS is a filesystem implementation that tracks files in memory for testing
type testFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

func newTestFS() *testFS {
	return &testFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (fs *testFS) Exists(path string) (bool, error) {
	_, hasFile := fs.files[path]
	return hasFile || fs.dirs[path], nil
}

func (fs *testFS) MkdirAll(path string, perm os.FileMode) error {
	for p := path; p != "/" && p != "."; p = filepath.Dir(p) {
		fs.dirs[p] = true
	}
	return nil
}

func under(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+string(filepath.Separator))
}

func (fs *testFS) RemoveAll(path string) error {
	for p := range fs.files {
		if under(p, path) {
			delete(fs.files, p)
		}
	}
	for p := range fs.dirs {
		if under(p, path) {
			delete(fs.dirs, p)
		}
	}
	return nil
}

func (fs *testFS) Rename(oldpath, newpath string) error {
	if ok, _ := fs.Exists(oldpath); !ok {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: os.ErrNotExist}
	}
	_ = fs.MkdirAll(filepath.Dir(newpath), 0755)

	moved := func(p string) string { return newpath + strings.TrimPrefix(p, oldpath) }
	for p, data := range fs.files {
		if under(p, oldpath) {
			delete(fs.files, p)
			fs.files[moved(p)] = data
		}
	}
	for p := range fs.dirs {
		if under(p, oldpath) {
			delete(fs.dirs, p)
			fs.dirs[moved(p)] = true
		}
	}
	return nil
}

func (fs *testFS) Glob(pattern string) ([]string, error) {
	var out []string
	check := func(p string) error {
		ok, err := filepath.Match(pattern, p)
		if ok {
			out = append(out, p)
		}
		return err
	}
	for p := range fs.files {
		if err := check(p); err != nil {
			return nil, err
		}
	}
	for p := range fs.dirs {
		if err := check(p); err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

func (fs *testFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	_ = fs.MkdirAll(filepath.Dir(path), 0755)
	fs.files[path] = append([]byte(nil), data...)
	return nil
}

func (fs *testFS) AtomicWrite(path string, data []byte, perm os.FileMode) error {
	return fs.WriteFile(path, data, perm)
}

func (fs *testFS) ReadFile(path string) ([]byte, error) {
	if content, ok := fs.files[path]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, os.ErrNotExist
}

func (fs *testFS) ValidateIdentifier(id string) error {
	return fsops.NewRealFS().ValidateIdentifier(id)
}

// testFetcher serves a fixed tarball body or error.
type testFetcher struct {
	body []byte
	err  error
	urls []string
}

func (f *testFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

// extractTo makes tar create the given top-level directories in the
// staging dir, each with a metadata.yaml.
func extractTo(fs *testFS, runner *execx.FakeRunner, dirs ...string) {
	runner.Handle("tar", func(cmd execx.Command) (*execx.Result, error) {
		staging := cmd.Args[1]
		for _, d := range dirs {
			_ = fs.WriteFile(filepath.Join(staging, d, "metadata.yaml"), []byte("name: glance-simplestreams-sync\n"), 0644)
		}
		return &execx.Result{}, nil
	})
}

const extractedDir = "Ubuntu-Solutions-Engineering-glance-simplestreams-sync-charm-4f1a2b3"

var tarballBody = []byte("stable tarball")

type testSetup struct {
	fs      *testFS
	paths   *config.Paths
	cfg     *config.Config
	fetcher *testFetcher
	runner  *execx.FakeRunner
	charm   *charms.GlanceSimplestreamsSync
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestCharm wires the glance-simplestreams-sync override the way the
// CLI does, on an in-memory filesystem and a scripted runner. The staging
// lock is the only thing written to disk.
func setupTestCharm(t *testing.T, doc config.Document) *testSetup {
	t.Helper()
	fs := newTestFS()
	paths := config.NewPaths("test", t.TempDir())
	if err := os.MkdirAll(paths.LocalCharms, 0755); err != nil {
		t.Fatalf("failed to create staging dir: %v", err)
	}

	cfg := config.New(fs, doc, paths.Config)
	fetcher := &testFetcher{body: tarballBody}
	runner := execx.NewFakeRunner()
	extractTo(fs, runner, extractedDir)

	logger := quietLogger()
	installer := artifact.NewInstaller(fs, fetcher, runner, artifact.GlanceSimplestreamsSync, "trusty",
		artifact.WithLogger(logger),
		artifact.WithExpectedDigest(cfg.GetString(config.KeyGlanceDigest)),
	)
	store := charms.NewStoreDeployer(fs, cfg, paths, runner, charms.GlanceSimplestreamsSyncName, "trusty", nil,
		charms.WithLogger(logger))
	charm := charms.NewGlanceSimplestreamsSync(fs, cfg, paths, installer, runner, store, store,
		charms.WithLogger(logger))

	return &testSetup{
		fs:      fs,
		paths:   paths,
		cfg:     cfg,
		fetcher: fetcher,
		runner:  runner,
		charm:   charm,
	}
}

func digestOf(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
