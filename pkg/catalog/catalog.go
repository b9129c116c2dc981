// Package catalog provides versioned, immutable sets of Python standard
// library module names.
//
// The data lives in embedded text files: data/base.txt holds the oldest
// supported version and data/3.N.txt holds the names that version added.
// A catalog for 3.N is the union of the base list and every addition up to
// and including 3.N, so names are never dropped when moving forward.
package catalog

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
)

//go:embed data/*.txt
var dataFS embed.FS

const (
	dataDir      = "data"
	baseFile     = "base.txt"
	dataExt      = ".txt"
	majorVersion = 3
	baseMinor    = 6
)

// Sentinel errors for catalog lookups.
var (
	// ErrUnknownVersion indicates a Python version with no catalog data.
	ErrUnknownVersion = errors.New("unknown python version")
	// ErrMalformedVersion indicates a version string that is not "3.N".
	ErrMalformedVersion = errors.New("malformed python version")
)

// Catalog is an immutable set of top-level standard library module names
// for one Python version.
type Catalog struct {
	names   map[string]struct{}
	version string
}

// table is the parsed embedded data.
type table struct {
	base      []string
	additions map[int][]string
	minors    []int
}

var (
	loadTable = sync.OnceValues(parseTable)
	built     sync.Map
)

// ForVersion returns the catalog for the given Python version ("3.N").
func ForVersion(version string) (*Catalog, error) {
	minor, err := parseVersion(version)
	if err != nil {
		return nil, err
	}

	if cached, ok := built.Load(minor); ok {
		cat, castOK := cached.(*Catalog)
		if castOK {
			return cat, nil
		}
	}

	tbl, err := loadTable()
	if err != nil {
		return nil, err
	}

	if !slices.Contains(tbl.minors, minor) {
		return nil, fmt.Errorf("%w: %s (supported: %s)", ErrUnknownVersion, version, strings.Join(Versions(), ", "))
	}

	names := make(map[string]struct{}, len(tbl.base))
	addNames(names, tbl.base)

	for _, m := range tbl.minors {
		if m > minor {
			break
		}

		addNames(names, tbl.additions[m])
	}

	cat := &Catalog{names: names, version: formatVersion(minor)}
	built.Store(minor, cat)

	return cat, nil
}

// Default returns the catalog for the newest supported Python version.
func Default() *Catalog {
	versions := Versions()

	cat, err := ForVersion(versions[len(versions)-1])
	if err != nil {
		// Embedded data is validated by tests; failing here is a build defect.
		panic(err)
	}

	return cat
}

// Latest returns the newest supported Python version.
func Latest() string {
	versions := Versions()

	return versions[len(versions)-1]
}

// Versions returns the supported Python versions in ascending order.
func Versions() []string {
	tbl, err := loadTable()
	if err != nil {
		return nil
	}

	out := make([]string, 0, len(tbl.minors))
	for _, m := range tbl.minors {
		out = append(out, formatVersion(m))
	}

	return out
}

// Contains reports whether name is a standard library top-level module.
// A nil catalog contains nothing.
func (c *Catalog) Contains(name string) bool {
	if c == nil {
		return false
	}

	_, ok := c.names[name]

	return ok
}

// With returns a new catalog that also contains the given names.
// Dotted names contribute their top-level segment. The receiver is unchanged.
func (c *Catalog) With(names ...string) *Catalog {
	merged := make(map[string]struct{}, len(c.names)+len(names))
	maps.Copy(merged, c.names)
	addNames(merged, names)

	return &Catalog{names: merged, version: c.version}
}

// Version returns the Python version this catalog describes.
func (c *Catalog) Version() string {
	return c.version
}

// Len returns the number of names in the catalog.
func (c *Catalog) Len() int {
	return len(c.names)
}

// Names returns the catalog names sorted ascending.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.names))
}

func addNames(dst map[string]struct{}, names []string) {
	for _, name := range names {
		head, _, _ := strings.Cut(strings.TrimSpace(name), ".")
		if head != "" {
			dst[head] = struct{}{}
		}
	}
}

func parseTable() (*table, error) {
	base, err := readNames(baseFile)
	if err != nil {
		return nil, err
	}

	tbl := &table{
		base:      base,
		additions: make(map[int][]string),
		minors:    []int{baseMinor},
	}

	entries, err := fs.ReadDir(dataFS, dataDir)
	if err != nil {
		return nil, fmt.Errorf("read catalog data: %w", err)
	}

	for _, entry := range entries {
		if entry.Name() == baseFile {
			continue
		}

		minor, parseErr := parseVersion(strings.TrimSuffix(entry.Name(), dataExt))
		if parseErr != nil {
			return nil, fmt.Errorf("catalog file %s: %w", entry.Name(), parseErr)
		}

		names, readErr := readNames(entry.Name())
		if readErr != nil {
			return nil, readErr
		}

		tbl.additions[minor] = names
		tbl.minors = append(tbl.minors, minor)
	}

	slices.Sort(tbl.minors)

	return tbl, nil
}

func readNames(file string) ([]string, error) {
	raw, err := dataFS.ReadFile(dataDir + "/" + file)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", file, err)
	}

	var names []string

	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		names = append(names, line)
	}

	return names, nil
}

func parseVersion(version string) (int, error) {
	majorStr, minorStr, ok := strings.Cut(strings.TrimSpace(version), ".")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMalformedVersion, version)
	}

	major, err := strconv.Atoi(majorStr)
	if err != nil || major != majorVersion {
		return 0, fmt.Errorf("%w: %q", ErrMalformedVersion, version)
	}

	minor, err := strconv.Atoi(minorStr)
	if err != nil || minor < 0 {
		return 0, fmt.Errorf("%w: %q", ErrMalformedVersion, version)
	}

	return minor, nil
}

func formatVersion(minor int) string {
	return strconv.Itoa(majorVersion) + "." + strconv.Itoa(minor)
}
