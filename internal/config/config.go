package config

import (
	_ "embed"
	"fmt"
	"maps"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Well-known settings keys.
const (
	KeyInstallType       = "install_type"
	KeySeries            = "series"
	KeyCharmConfig       = "charm_config"
	KeyOpenstackPassword = "openstack_password"
	KeyMAASCreds         = "maascreds"
	KeyLandscapeCreds    = "landscapecreds"

	// KeyGlanceDigest pins the SHA-256 of the glance-simplestreams-sync
	// stable tarball.
	KeyGlanceDigest = "glance_simplestreams_sync_sha256"
)

// Document is a settings document: setting name to scalar or nested mapping.
type Document map[string]any

// PersistenceError is returned when the settings document cannot be saved.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save config to %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DefaultDocument returns a fresh copy of the built-in defaults.
func DefaultDocument() Document {
	doc := Document{}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return doc
}

// merge returns base overlaid with top, key by key. Nested mappings in top
// replace those in base whole.
func merge(base, top Document) Document {
	out := make(Document, len(base)+len(top))
	maps.Copy(out, base)
	maps.Copy(out, top)
	return out
}

// Config holds the settings document of one installation and saves it to a
// YAML file. It has no internal locking; two Configs saving to the same
// path overwrite each other.
type Config struct {
	fs    fsops.FS
	doc   Document
	path  string
	paths *Paths
}

// New creates a Config from the defaults merged with doc. Save writes to path.
func New(fs fsops.FS, doc Document, path string) *Config {
	return &Config{
		fs:   fs,
		doc:  merge(DefaultDocument(), doc),
		path: path,
	}
}

// Load creates a Config for the installation described by paths. The
// document at paths.Config, if present, is merged over the defaults.
func Load(fs fsops.FS, paths *Paths) (*Config, error) {
	c := &Config{
		fs:    fs,
		doc:   DefaultDocument(),
		path:  paths.Config,
		paths: paths,
	}

	data, err := fs.ReadFile(paths.Config)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	loaded := Document{}
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", paths.Config, err)
	}
	c.doc = merge(c.doc, loaded)

	return c, nil
}

// Path returns the file Save writes to.
func (c *Config) Path() string {
	return c.path
}

// Paths returns the installation paths, or nil when the Config was built
// from an explicit document.
func (c *Config) Paths() *Paths {
	return c.paths
}

// Get returns the value stored under key.
func (c *Config) Get(key string) (any, bool) {
	v, ok := c.doc[key]
	return v, ok
}

// GetString returns the value under key when it is a string, else "".
func (c *Config) GetString(key string) string {
	s, _ := c.doc[key].(string)
	return s
}

// GetMap returns the mapping under key, or nil when key is unset or not a
// mapping.
func (c *Config) GetMap(key string) Document {
	return ToDocument(c.doc[key])
}

// Set stores value under key. Any key is accepted.
func (c *Config) Set(key string, value any) {
	c.doc[key] = value
}

// IsSingle reports whether this is a single-machine install.
func (c *Config) IsSingle() bool {
	return c.GetString(KeyInstallType) == "single"
}

// Document returns a shallow copy of the settings document.
func (c *Config) Document() Document {
	return maps.Clone(c.doc)
}

// Save writes the whole document to the config file, replacing it. The
// file is readable by the owner only since it may hold credentials.
func (c *Config) Save() error {
	data, err := yaml.Marshal(c.doc)
	if err != nil {
		return &PersistenceError{Path: c.path, Err: fmt.Errorf("failed to marshal config: %w", err)}
	}

	if err := c.fs.AtomicWrite(c.path, data, 0600); err != nil {
		return &PersistenceError{Path: c.path, Err: err}
	}

	return nil
}

// ToDocument converts the mapping shapes produced by yaml.v3 and by callers
// of Set into a Document.
func ToDocument(v any) Document {
	switch m := v.(type) {
	case Document:
		return m
	case map[string]any:
		return Document(m)
	case map[string]string:
		out := make(Document, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	default:
		return nil
	}
}
