package sysgpio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFakeSysfs(t *testing.T, pin int) string {
	t.Helper()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "gpio7"), 0755))

	old := Base
	Base = base
	t.Cleanup(func() { Base = old })
	return base
}

func TestExportAndSetLevel(t *testing.T) {
	base := setupFakeSysfs(t, 7)

	require.NoError(t, Export(7))

	dir, err := os.ReadFile(filepath.Join(base, "gpio7", "direction"))
	require.NoError(t, err)
	assert.Equal(t, "out", string(dir))

	require.NoError(t, SetLevel(7, true))
	level, err := ReadLevel(7)
	require.NoError(t, err)
	assert.True(t, level)

	require.NoError(t, SetLevel(7, false))
	level, err = ReadLevel(7)
	require.NoError(t, err)
	assert.False(t, level)
}

func TestReadLevelMalformed(t *testing.T) {
	base := setupFakeSysfs(t, 7)
	require.NoError(t, os.WriteFile(filepath.Join(base, "gpio7", "value"), []byte("banana"), 0644))

	_, err := ReadLevel(7)
	assert.Error(t, err)
}

func TestReadLevelMissingPin(t *testing.T) {
	setupFakeSysfs(t, 7)

	_, err := ReadLevel(9)
	assert.Error(t, err)
}
