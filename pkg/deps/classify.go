// Package deps turns a set of imported module names into the list of
// external dependencies and renders it for people and machines.
package deps

import (
	"slices"

	"github.com/Sumatoshi-tech/pydeps/pkg/imports"
)

// Membership answers whether a top-level name belongs to the standard library.
// *catalog.Catalog satisfies it.
type Membership interface {
	Contains(name string) bool
}

// Classify returns the names not in the standard library, sorted ascending.
// The result is never nil; an empty slice means nothing to install.
func Classify(names imports.Set, stdlib Membership) []string {
	external := make([]string, 0, len(names))

	for name := range names {
		if !stdlib.Contains(name) {
			external = append(external, name)
		}
	}

	slices.Sort(external)

	return external
}
