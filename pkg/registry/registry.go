// Package registry implements the CLI-side global vault registry: a
// local mapping of vault id to absolute path, following the original
// implementation's platformdirs.user_config_dir convention. This is a
// convenience for resolving a vault id to a path on the command line;
// the engine package never reads it and only ever accepts resolved
// filesystem roots.
package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/castsync/cast/pkg/atomicfile"
)

// Registry is the persisted vault-id -> path mapping.
type Registry struct {
	path   string
	Vaults map[string]string `yaml:"vaults"`
}

// DefaultPath returns the XDG-style config path for the registry,
// honoring $XDG_CONFIG_HOME and falling back to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "cast", "vaults.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "cast", "vaults.yaml"), nil
}

// Load reads the registry at path, returning an empty Registry if it
// does not yet exist.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, Vaults: make(map[string]string)}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault registry: %w", err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("corrupt vault registry %s: %w", path, err)
	}
	if r.Vaults == nil {
		r.Vaults = make(map[string]string)
	}
	return r, nil
}

// Save persists the registry atomically.
func (r *Registry) Save() error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return err
	}
	return atomicfile.Write(r.path, data, 0o644)
}

// Set records vaultID -> absPath, overwriting any prior entry.
func (r *Registry) Set(vaultID, absPath string) {
	r.Vaults[vaultID] = absPath
}

// Resolve returns the path registered for a vault id, or ok=false.
func (r *Registry) Resolve(vaultID string) (string, bool) {
	path, ok := r.Vaults[vaultID]
	return path, ok
}

// ResolveArg resolves arg to a filesystem path: if arg looks like a
// path that exists, it is returned verbatim; otherwise it is looked up
// in the registry by vault id. This lets CLI commands accept either a
// path or a known vault id interchangeably.
func ResolveArg(r *Registry, arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return arg, nil
	}
	if path, ok := r.Resolve(arg); ok {
		return path, nil
	}
	return "", fmt.Errorf("%q is neither an existing directory nor a registered vault id", arg)
}
