// Package config loads the trust-anchor / threshold / ECU identity
// settings a targets.Config needs from a TOML file, grounded on the
// teacher's own use of github.com/naoina/toml for node configuration.
package config

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// KeyEntry names one provisioned trust-anchor key file on disk and
// the backend method it should be loaded with; the cmd layer resolves
// this into a concrete targets.Key via the matching crypto/*verify
// package.
type KeyEntry struct {
	Method string `toml:"method"`
	File   string `toml:"file"`
}

// ECU describes one ECU/hardware identity pair this installation
// verifies manifests for.
type ECU struct {
	Name       string     `toml:"name"`
	ECUID      string     `toml:"ecu_id"`
	HardwareID string     `toml:"hardware_id"`
	Threshold  int        `toml:"threshold"`
	StatePath  string     `toml:"state_path"`
	Keys       []KeyEntry `toml:"keys"`
}

// File is the top-level shape of an uptanectl TOML config.
type File struct {
	ManifestPath string `toml:"manifest_path"`
	ListenAddr   string `toml:"listen_addr"`
	ECUs         []ECU  `toml:"ecu"`

	// Telemetry, when TelemetryURL is non-empty, enables the
	// InfluxDB-backed outcome publisher (SPEC_FULL.md §4.10).
	TelemetryURL    string `toml:"telemetry_url"`
	TelemetryToken  string `toml:"telemetry_token"`
	TelemetryOrg    string `toml:"telemetry_org"`
	TelemetryBucket string `toml:"telemetry_bucket"`

	// SeenCacheBytes bounds the watch command's manifest-digest
	// dedupe cache (SPEC_FULL.md §4.8); 0 selects a 4MiB default.
	SeenCacheBytes int `toml:"seen_cache_bytes"`
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for _, e := range f.ECUs {
		if e.Threshold <= 0 {
			return nil, fmt.Errorf("config: ecu %q: threshold must be positive", e.Name)
		}
	}
	return &f, nil
}
