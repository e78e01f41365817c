package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
)

// OSReleasePath is where the running distribution describes itself.
const OSReleasePath = "/etc/os-release"

// ErrSeriesUnknown is returned when no series could be determined.
var ErrSeriesUnknown = errors.New("could not determine series")

// DetectSeries reads the distribution codename from an os-release file.
func DetectSeries(osReleasePath string) (string, error) {
	data, err := os.ReadFile(osReleasePath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSeriesUnknown, err)
	}

	fields := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"'`)
	}

	for _, key := range []string{"VERSION_CODENAME", "UBUNTU_CODENAME"} {
		if v := fields[key]; v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: no codename in %s", ErrSeriesUnknown, osReleasePath)
}

// ResolveSeries picks the series to deploy for: an explicit value wins,
// then the settings document, then the running distribution.
func ResolveSeries(explicit string, cfg *Config, osReleasePath string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if s := cfg.GetString(KeySeries); s != "" {
		return s, nil
	}
	return DetectSeries(osReleasePath)
}
