package charms

import (
	"fmt"

	yaml "gopkg.in/yaml.v3"

	"github.com/danieljhkim/cloudinstall/internal/config"
	"github.com/danieljhkim/cloudinstall/internal/fsops"
)

// writeCharmConfig writes the charm_config block of cfg to path, in the
// `charm: {option: value}` form juju deploy --config reads. It returns path
// when the block has options for charm and "" otherwise, in which case
// nothing is written.
func writeCharmConfig(fs fsops.FS, cfg *config.Config, path, charm string) (string, error) {
	block := cfg.GetMap(config.KeyCharmConfig)
	if len(config.ToDocument(block[charm])) == 0 {
		return "", nil
	}

	data, err := yaml.Marshal(block)
	if err != nil {
		return "", fmt.Errorf("failed to marshal charm config: %w", err)
	}
	if err := fs.AtomicWrite(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write charm config: %w", err)
	}
	return path, nil
}
