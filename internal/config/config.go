// Package config loads the JSON configuration file the storage-enforcer
// binary takes via its "-c config" flag (spec.md §6), the way cockroachdb-cockroach's
// server binaries load a YAML/JSON config alongside cobra/pflag flags for
// the handful of settings that make sense as flags (addresses, toggles).
package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/timmyzhu/WorkloadCompactor/internal/scheduler"
)

// TenantEntry configures one tenant's priority and token buckets, the JSON
// form of scheduler.TenantConfig.
type TenantEntry struct {
	Name     string                   `json:"name"`
	Priority int                      `json:"priority"`
	Buckets  []scheduler.BucketConfig `json:"buckets"`
}

// StorageEnforcerConfig is the storage-enforcer's "-c config" document: the
// downstream storage service it fronts, its scheduling limits, its known
// tenants, and its SSD bandwidth profile.
type StorageEnforcerConfig struct {
	ListenAddr         string           `json:"listenAddr"`
	DownstreamAddrs    []string         `json:"downstreamAddrs"`
	StorageProfilePath string           `json:"storageProfilePath"`
	Limits             scheduler.Limits `json:"limits"`
	Tenants            []TenantEntry    `json:"tenants"`
	KeepAliveSeconds   int              `json:"keepAliveSeconds"`
}

// LoadStorageEnforcerConfig reads and validates a storage-enforcer config
// file.
func LoadStorageEnforcerConfig(path string) (*StorageEnforcerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening config %q", path)
	}
	defer f.Close()
	return readStorageEnforcerConfig(f)
}

func readStorageEnforcerConfig(r io.Reader) (*StorageEnforcerConfig, error) {
	var cfg StorageEnforcerConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if cfg.ListenAddr == "" {
		return nil, errors.New("config: listenAddr is required")
	}
	if len(cfg.DownstreamAddrs) == 0 {
		return nil, errors.New("config: at least one downstreamAddr is required")
	}
	if cfg.KeepAliveSeconds <= 0 {
		cfg.KeepAliveSeconds = 30
	}
	return &cfg, nil
}
