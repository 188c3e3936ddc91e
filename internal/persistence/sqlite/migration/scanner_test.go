package migration

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanner_Scan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         fstest.MapFS
		expectedOrder []string
		expectErr     error
	}{
		{
			name: "sorted by numeric version",
			files: fstest.MapFS{
				"migrations/010_late.sql":           {Data: []byte("CREATE TABLE c (id TEXT);")},
				"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/002_more.sql":           {Data: []byte("CREATE TABLE b (id TEXT);")},
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "non sql files ignored",
			files: fstest.MapFS{
				"migrations/001_initial_schema.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/README.md":              {Data: []byte("# notes")},
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "malformed name",
			files: fstest.MapFS{
				"migrations/initial.sql": {Data: []byte("CREATE TABLE a (id TEXT);")},
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "comment only body",
			files: fstest.MapFS{
				"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")},
			},
			expectErr: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"migrations/001_a.sql":  {Data: []byte("CREATE TABLE a (id TEXT);")},
				"migrations/0001_b.sql": {Data: []byte("CREATE TABLE b (id TEXT);")},
			},
			expectErr: ErrDuplicateVersion,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			migrations, err := NewScanner(tt.files, "migrations").Scan()
			if tt.expectErr != nil {
				require.ErrorIs(t, err, tt.expectErr)
				return
			}
			require.NoError(t, err)

			versions := make([]string, 0, len(migrations))
			for _, m := range migrations {
				versions = append(versions, m.Version)
			}
			assert.Equal(t, tt.expectedOrder, versions)
		})
	}
}

func TestScanner_Description(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"m/001_initial_schema.sql": {Data: []byte("-- Description: Meetings and calendars\nCREATE TABLE a (id TEXT);")},
		"m/002_add_index.sql":      {Data: []byte("CREATE INDEX idx ON a(id);")},
	}

	migrations, err := NewScanner(files, "m").Scan()
	require.NoError(t, err)
	require.Len(t, migrations, 2)

	assert.Equal(t, "Meetings and calendars", migrations[0].Description)
	assert.Equal(t, "add index", migrations[1].Description)
	assert.Equal(t, "m/001_initial_schema.sql", migrations[0].FilePath)
	assert.Len(t, migrations[0].Checksum, 64)
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	sql := `
-- header
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx_a ON a(id);
`
	assert.Equal(t, []string{"CREATE TABLE a (id TEXT)", "CREATE INDEX idx_a ON a(id)"}, splitStatements(sql))
}
