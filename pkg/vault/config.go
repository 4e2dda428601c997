package vault

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/castsync/cast/pkg/atomicfile"
	"github.com/castsync/cast/pkg/selector"
)

// SyncRule configures one named synchronization policy between a source
// vault and one or more destination vaults, supplementing the core
// spec's single-pair sync with the original implementation's notion of
// named, selectable rules.
type SyncRule struct {
	ID            string   `yaml:"id"`
	Mode          string   `yaml:"mode"` // broadcast | bidirectional | mirror
	FromVault     string   `yaml:"from_vault"`
	ToVaults      []string `yaml:"to_vaults"`
	PathsAny      []string `yaml:"select_paths_any,omitempty"`
	Types         []string `yaml:"select_types,omitempty"`
	Categories    []string `yaml:"select_categories,omitempty"`
	TagsAny       []string `yaml:"select_tags_any,omitempty"`
	TagsAll       []string `yaml:"select_tags_all,omitempty"`
	IncludeAssets bool     `yaml:"include_assets,omitempty"`
}

// Config is the persisted contents of .cast/config.yaml.
type Config struct {
	CastVersion   string     `yaml:"cast_version"`
	VaultID       string     `yaml:"vault_id"`
	Include       []string   `yaml:"include"`
	Exclude       []string   `yaml:"exclude"`
	EphemeralKeys []string   `yaml:"ephemeral_keys"`
	MaxFileSize   int64      `yaml:"max_file_size,omitempty"`
	LineEndings   string     `yaml:"line_endings,omitempty"` // lf | crlf | native
	SyncRules     []SyncRule `yaml:"sync_rules,omitempty"`
}

// SupportedCastVersion is the protocol version this engine speaks.
// Configuration carrying a different value is refused rather than risk
// silently misinterpreting a future wire format.
const SupportedCastVersion = "1"

// DefaultEphemeralKeys mirrors the pre-distillation implementation's
// default ephemeral-key list.
var DefaultEphemeralKeys = []string{"updated", "last_synced", "base-version"}

// DefaultConfig returns a fresh configuration for vaultID.
func DefaultConfig(vaultID string) Config {
	return Config{
		CastVersion:   SupportedCastVersion,
		VaultID:       vaultID,
		Include:       append([]string{}, selector.DefaultInclude...),
		Exclude:       append([]string{}, selector.DefaultExclude...),
		EphemeralKeys: append([]string{}, DefaultEphemeralKeys...),
	}
}

// EphemeralSet returns the configured ephemeral keys as a lookup set.
func (c Config) EphemeralSet() map[string]struct{} {
	out := make(map[string]struct{}, len(c.EphemeralKeys))
	for _, k := range c.EphemeralKeys {
		out[k] = struct{}{}
	}
	return out
}

// ErrUnsupportedVersion is returned when a config's cast_version does not
// match what this engine understands.
type ErrUnsupportedVersion struct{ Got string }

func (e *ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported cast-version %q (expected %q)", e.Got, SupportedCastVersion)
}

// LoadConfig reads and validates config.yaml at path.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.CastVersion != SupportedCastVersion {
		return Config{}, &ErrUnsupportedVersion{Got: cfg.CastVersion}
	}
	return cfg, nil
}

// SaveConfig writes config to path atomically.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return atomicfile.Write(path, data, 0o644)
}
