package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name   string
		want   int
		wantOK bool
	}{
		{"001_focus_schema.sql", 1, true},
		{"012_indexes.sql", 12, true},
		{"README.md", 0, false},
		{"abc_x.sql", 0, false},
		{"000_zero.sql", 0, false},
		{"noprefix.sql", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := migrationVersion(tc.name)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, v)
		})
	}
}

func TestListMigrations_SortedByVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"010_late.sql", "002_mid.sql", "001_first.sql", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "003_dir.sql"), 0o700))

	files, err := listMigrations(dir)
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, []int{1, 2, 10}, []int{files[0].version, files[1].version, files[2].version})
}

func TestListMigrations_MissingDir(t *testing.T) {
	_, err := listMigrations(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
