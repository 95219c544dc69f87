package migration

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/portalsync/migrations"
)

func TestEmbeddedMigrations(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_sync_tables", "000002_create_sync_runs"}, names)

	for _, name := range names {
		_, err := migrations.FS.ReadFile(name + ".down.sql")
		assert.NoError(t, err, "%s has no down migration", name)
	}
}

func TestNextVersion(t *testing.T) {
	v, err := NextVersion(fstest.MapFS{})
	require.NoError(t, err)
	assert.Equal(t, "000001", v)

	v, err = NextVersion(fstest.MapFS{
		"000001_a.up.sql":   {},
		"000001_a.down.sql": {},
		"000009_b.up.sql":   {},
	})
	require.NoError(t, err)
	assert.Equal(t, "000010", v)

	_, err = NextVersion(fstest.MapFS{"init.up.sql": {}})
	assert.Error(t, err)
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "Add ETA  notes")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, "add_eta_notes", first.Name)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "000001 add_eta_notes")
	assert.FileExists(t, first.DownPath)

	second, err := CreateMigration(dir, "index identifiers")
	require.NoError(t, err)
	assert.Equal(t, "000002", second.Version)

	_, err = CreateMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "add_column", sanitizeName("Add Column"))
	assert.Equal(t, "a_b", sanitizeName("a - b"))
	assert.Equal(t, "x1", sanitizeName("__x1__"))
	assert.Equal(t, "", sanitizeName("***"))
}
