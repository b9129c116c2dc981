package catalog_test

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/pydeps/pkg/catalog"
)

func TestVersions_AscendingFromBase(t *testing.T) {
	t.Parallel()

	versions := catalog.Versions()

	require.NotEmpty(t, versions)
	assert.Equal(t, "3.6", versions[0])
	assert.Contains(t, versions, "3.10")
	assert.Equal(t, catalog.Latest(), versions[len(versions)-1])

	// 3.10 must sort after 3.9, not lexically before it.
	assert.Less(t, indexOf(versions, "3.9"), indexOf(versions, "3.10"))
}

func TestForVersion_ContainsCoreModules(t *testing.T) {
	t.Parallel()

	cat, err := catalog.ForVersion("3.6")
	require.NoError(t, err)

	for _, name := range []string{"os", "sys", "collections", "__future__", "json", "typing", "xml"} {
		assert.True(t, cat.Contains(name), name)
	}

	assert.False(t, cat.Contains("requests"))
	assert.False(t, cat.Contains("numpy"))
	assert.False(t, cat.Contains(""))
}

func TestDefault_CoversInterpreterModuleNames(t *testing.T) {
	t.Parallel()

	// testdata holds sys.stdlib_module_names from a CPython 3.13 interpreter.
	file, err := os.Open(filepath.Join("testdata", "stdlib_module_names_3.13.txt"))
	require.NoError(t, err)
	defer file.Close()

	cat, err := catalog.ForVersion("3.13")
	require.NoError(t, err)

	var checked int

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}

		checked++

		assert.True(t, cat.Contains(name), "%s missing from 3.13 catalog", name)
		assert.True(t, catalog.Default().Contains(name), "%s missing from default catalog", name)
	}

	require.NoError(t, scanner.Err())
	assert.Greater(t, checked, 250)
}

func TestForVersion_PrivateModulesByVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		added string
		prior string
	}{
		{name: "_uuid", added: "3.7", prior: "3.6"},
		{name: "_statistics", added: "3.8", prior: "3.7"},
		{name: "_bootsubprocess", added: "3.10", prior: "3.9"},
		{name: "_sha2", added: "3.12", prior: "3.11"},
		{name: "_sysconfig", added: "3.13", prior: "3.12"},
	}

	for _, tc := range tests {
		added, err := catalog.ForVersion(tc.added)
		require.NoError(t, err)

		prior, err := catalog.ForVersion(tc.prior)
		require.NoError(t, err)

		assert.True(t, added.Contains(tc.name), tc.name)
		assert.False(t, prior.Contains(tc.name), tc.name)
	}

	base, err := catalog.ForVersion("3.6")
	require.NoError(t, err)

	for _, name := range []string{"_asyncio", "_codecs_cn", "_codecs_hk", "_codecs_iso2022", "_codecs_jp", "_codecs_kr", "_codecs_tw", "_scproxy"} {
		assert.True(t, base.Contains(name), name)
	}
}

func TestForVersion_AddsNamesPerVersion(t *testing.T) {
	t.Parallel()

	py36, err := catalog.ForVersion("3.6")
	require.NoError(t, err)

	py39, err := catalog.ForVersion("3.9")
	require.NoError(t, err)

	py311, err := catalog.ForVersion("3.11")
	require.NoError(t, err)

	assert.False(t, py36.Contains("dataclasses"))
	assert.True(t, py39.Contains("dataclasses"))
	assert.True(t, py39.Contains("zoneinfo"))
	assert.False(t, py39.Contains("tomllib"))
	assert.True(t, py311.Contains("tomllib"))
}

func TestForVersion_Monotone(t *testing.T) {
	t.Parallel()

	versions := catalog.Versions()

	for idx := 1; idx < len(versions); idx++ {
		older, err := catalog.ForVersion(versions[idx-1])
		require.NoError(t, err)

		newer, err := catalog.ForVersion(versions[idx])
		require.NoError(t, err)

		for _, name := range older.Names() {
			assert.True(t, newer.Contains(name), "%s dropped in %s", name, versions[idx])
		}
	}
}

func TestForVersion_NamesAreTopLevel(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()

	for _, name := range cat.Names() {
		assert.NotContains(t, name, ".")
	}

	// wsgiref.types collapses to wsgiref.
	assert.True(t, cat.Contains("wsgiref"))
	assert.False(t, cat.Contains("wsgiref.types"))
}

func TestForVersion_Errors(t *testing.T) {
	t.Parallel()

	_, err := catalog.ForVersion("3.5")
	require.ErrorIs(t, err, catalog.ErrUnknownVersion)

	_, err = catalog.ForVersion("3.99")
	require.ErrorIs(t, err, catalog.ErrUnknownVersion)

	for _, bad := range []string{"", "3", "2.7", "three.nine", "3.x"} {
		_, err = catalog.ForVersion(bad)
		require.ErrorIs(t, err, catalog.ErrMalformedVersion, bad)
	}
}

func TestWith_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base, err := catalog.ForVersion("3.12")
	require.NoError(t, err)

	before := base.Len()

	extended := base.With("internal_pkg", "corp.tools", "  ")

	assert.Equal(t, before, base.Len())
	assert.False(t, base.Contains("internal_pkg"))
	assert.True(t, extended.Contains("internal_pkg"))
	assert.True(t, extended.Contains("corp"))
	assert.Equal(t, before+2, extended.Len())
	assert.Equal(t, base.Version(), extended.Version())
}

func TestContains_NilCatalog(t *testing.T) {
	t.Parallel()

	var cat *catalog.Catalog

	assert.False(t, cat.Contains("os"))
}

func TestDefault_IsLatest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, catalog.Latest(), catalog.Default().Version())
}

func indexOf(items []string, want string) int {
	for idx, item := range items {
		if item == want {
			return idx
		}
	}

	return -1
}
