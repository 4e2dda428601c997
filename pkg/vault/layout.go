// Package vault owns a Cast vault's on-disk layout, configuration, and
// exclusive lock — the ambient state every other component operates
// against.
package vault

import "path/filepath"

// SystemDir is the vault's bookkeeping subdirectory name.
const SystemDir = ".cast"

// Layout resolves the fixed paths within a vault's system directory.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout { return Layout{Root: root} }

func (l Layout) SystemDir() string  { return filepath.Join(l.Root, SystemDir) }
func (l Layout) ConfigPath() string { return filepath.Join(l.SystemDir(), "config.yaml") }
func (l Layout) IndexPath() string  { return filepath.Join(l.SystemDir(), "index.json") }
func (l Layout) ObjectsDir() string { return filepath.Join(l.SystemDir(), "objects") }
func (l Layout) PeersDir() string   { return filepath.Join(l.SystemDir(), "peers") }
func (l Layout) LockPath() string   { return filepath.Join(l.SystemDir(), ".lock") }
