package main

import "github.com/castsync/cast/pkg/registry"

// resolveVaultArg accepts either a filesystem path or a registered
// vault id and returns a resolved filesystem path. If the registry's
// location cannot be determined or the registry cannot be read or
// parsed, the argument is returned unchanged and unchecked; a missing
// registry file counts as an empty registry.
func resolveVaultArg(arg string) (string, error) {
	regPath, err := registry.DefaultPath()
	if err != nil {
		return arg, nil
	}
	reg, err := registry.Load(regPath)
	if err != nil {
		return arg, nil
	}
	return registry.ResolveArg(reg, arg)
}
