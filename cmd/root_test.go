package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/table"
)

func TestResourceLocator_SearchOrder(t *testing.T) {
	// GIVEN the same resource in an explicit directory and in one from the environment
	explicit, fromEnv := t.TempDir(), t.TempDir()
	for _, dir := range []string{explicit, fromEnv} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Sample"+table.ExtStab), nil, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(fromEnv, "OnlyEnv"+table.ExtYAML), nil, 0o644))
	t.Setenv(ResourcesEnv, strings.Join([]string{"", fromEnv}, string(os.PathListSeparator)))

	loc := resourceLocator(explicit)

	// THEN explicit directories win and the environment directories are searched after them
	path, err := loc.Find("Sample")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(explicit, "Sample"+table.ExtStab), path)
	path, err = loc.Find("OnlyEnv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fromEnv, "OnlyEnv"+table.ExtYAML), path)
	_, err = loc.Find("Missing")
	assert.Error(t, err)
}

func TestResourceLocator_NoEnvironment(t *testing.T) {
	t.Setenv(ResourcesEnv, "")
	assert.Empty(t, resourceLocator().Dirs)
}

func TestListFamilies(t *testing.T) {
	var buf bytes.Buffer
	listFamilies(&buf)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(sed.ValidFamilies))
	for i, name := range sed.FamilyNames() {
		assert.True(t, strings.HasPrefix(lines[i], name), "line %d: %q", i, lines[i])
	}
}

func TestDescribeFamily(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, describeFamily(&buf, sed.Config{Type: sed.TypeSpinFlip}, table.NewLocator()))
	out := buf.String()
	assert.Contains(t, out, "line luminosity")
	assert.Contains(t, out, "km/s")

	err := describeFamily(&buf, sed.Config{Type: "nebula"}, table.NewLocator())
	var cerr *sed.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
