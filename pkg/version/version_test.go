package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/pydeps/pkg/version"
)

func TestString(t *testing.T) {
	t.Parallel()

	out := version.String()

	assert.Contains(t, out, "pydeps "+version.Resolved())
	assert.Contains(t, out, "commit "+version.Commit)
	assert.Contains(t, out, "built "+version.Date)
}

func TestResolved_NeverEmpty(t *testing.T) {
	t.Parallel()

	assert.NotEmpty(t, version.Resolved())
}
