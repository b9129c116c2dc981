package deps

import "strings"

// Default package manager settings.
const (
	DefaultInstallCommand = "pip install"
	DefaultBootstrap      = "pip"
)

// PackageManager describes how external dependencies are installed.
type PackageManager struct {
	// Command is the install invocation, e.g. "pip install".
	Command string
	// Bootstrap is the package manager's own name. It is always present,
	// so it is never part of the install command.
	Bootstrap string
}

// DefaultPackageManager returns the pip package manager.
func DefaultPackageManager() PackageManager {
	return PackageManager{
		Command:   DefaultInstallCommand,
		Bootstrap: DefaultBootstrap,
	}
}

// Installable returns external without the bootstrap tool name.
func (pm PackageManager) Installable(external []string) []string {
	out := make([]string, 0, len(external))

	for _, name := range external {
		if name != pm.Bootstrap {
			out = append(out, name)
		}
	}

	return out
}

// InstallCommand renders "<command> <name1> <name2> ...".
// It returns false when nothing is left to install.
func (pm PackageManager) InstallCommand(external []string) (string, bool) {
	names := pm.Installable(external)
	if len(names) == 0 {
		return "", false
	}

	return pm.Command + " " + strings.Join(names, " "), true
}

// NamesOnly renders the installable names space-joined, without the command.
func (pm PackageManager) NamesOnly(external []string) string {
	return strings.Join(pm.Installable(external), " ")
}
