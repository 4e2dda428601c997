package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/introspection"
)

// Vault is an opened Cast vault: its root, resolved layout, and loaded
// configuration. It holds no mutable sync state beyond the lock it may
// be currently holding.
type Vault struct {
	Layout Layout
	Config Config
	logger *slog.Logger

	unlock Unlock
}

// Option configures Open, following the functional-options style used
// throughout the retrieval pack's configuration layers.
type Option func(*openOptions)

type openOptions struct {
	autoInit bool
	logger   *slog.Logger
}

// WithAutoInit creates config.yaml with defaults if the vault has none.
func WithAutoInit() Option {
	return func(o *openOptions) { o.autoInit = true }
}

// WithLogger attaches a logger; nil is safe and disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *openOptions) { o.logger = l }
}

// Open loads the vault rooted at root, applying opts.
func Open(root string, opts ...Option) (*Vault, error) {
	o := &openOptions{}
	for _, opt := range opts {
		opt(o)
	}

	layout := NewLayout(root)
	cfg, err := LoadConfig(layout.ConfigPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || !o.autoInit {
			return nil, err
		}
		cfg = DefaultConfig(root)
		if err := Init(root, cfg); err != nil {
			return nil, err
		}
	}

	return &Vault{Layout: layout, Config: cfg, logger: o.logger}, nil
}

// Init creates a fresh vault layout at root with cfg.
func Init(root string, cfg Config) error {
	layout := NewLayout(root)
	for _, dir := range []string{layout.SystemDir(), layout.ObjectsDir(), layout.PeersDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to initialize vault at %s: %w", root, err)
		}
	}
	return SaveConfig(layout.ConfigPath(), cfg)
}

// Lock acquires the vault's exclusive advisory lock with the default
// timeout, remembering the unlock func for Unlock.
func (v *Vault) Lock() error {
	unlock, err := Lock(v.Layout.LockPath(), DefaultLockTimeout)
	if err != nil {
		return err
	}
	v.unlock = unlock
	return nil
}

// Unlock releases a held lock, if any.
func (v *Vault) Unlock() {
	if v.unlock != nil {
		v.unlock()
		v.unlock = nil
	}
}

func (v *Vault) log() *slog.Logger {
	if v.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return v.logger
}

// State implements introspection.Introspectable.
func (v *Vault) State() any {
	return VaultState{
		Root:        v.Layout.Root,
		VaultID:     v.Config.VaultID,
		CastVersion: v.Config.CastVersion,
		Locked:      v.unlock != nil,
		ObservedAt:  time.Now(),
	}
}

// ComponentType implements introspection.Component.
func (v *Vault) ComponentType() string { return "vault" }

// VaultState exposes a vault's observable state for introspection.
type VaultState struct {
	Root        string    `json:"root"`
	VaultID     string    `json:"vault_id"`
	CastVersion string    `json:"cast_version"`
	Locked      bool      `json:"locked"`
	ObservedAt  time.Time `json:"observed_at"`
}

var (
	_ introspection.Introspectable = (*Vault)(nil)
	_ introspection.Component      = (*Vault)(nil)
)
