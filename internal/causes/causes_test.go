package causes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableMembership(t *testing.T) {
	table := Table{"T001": "Roadbed settled or soft", "T202": "Broken rail (base)"}

	assert.True(t, table.Contains("T001"))
	assert.True(t, table.Contains("T202"))
	assert.False(t, table.Contains("X200"))
	assert.False(t, table.Contains(""))
	assert.Equal(t, 2, table.Len())
}

func TestDefaultTableCoversTrackCauses(t *testing.T) {
	assert.True(t, Default.Contains("T001"))
	assert.True(t, Default.Contains("T108"))
	assert.True(t, Default.Contains("T207"))
	assert.False(t, Default.Contains("H501"))
	assert.Greater(t, Default.Len(), 20)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "causes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"H501": "Impairment of efficiency or judgment"}`), 0644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.True(t, table.Contains("H501"))
	assert.Equal(t, 1, table.Len())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "causes.json")
	require.NoError(t, os.WriteFile(path, []byte(`["not", "an", "object"]`), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}
