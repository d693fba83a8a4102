package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

func artifact(name, content string) *models.ReportArtifact {
	return &models.ReportArtifact{
		Name:     name,
		FileName: name + ".html",
		Content:  []byte(content),
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name     string
		basePath string
		period   string
		tmpl     string
		want     models.StoredArtifactLocation
		wantErr  bool
		wantKind models.StorageErrorKind
	}{
		{
			name:     "renders period placeholder",
			basePath: "/srv/reports",
			period:   "2024-03",
			tmpl:     "activity-{period}.html",
			want: models.StoredArtifactLocation{
				BasePath:     "/srv/reports",
				PeriodFolder: "2024-03",
				FileName:     "activity-2024-03.html",
				FullPath:     "/srv/reports/2024-03/activity-2024-03.html",
			},
		},
		{
			name:     "plain file name passes through",
			basePath: "/srv/reports",
			period:   "2024-03",
			tmpl:     "summary.html",
			want: models.StoredArtifactLocation{
				BasePath:     "/srv/reports",
				PeriodFolder: "2024-03",
				FileName:     "summary.html",
				FullPath:     "/srv/reports/2024-03/summary.html",
			},
		},
		{
			name:     "empty base path",
			basePath: "  ",
			period:   "2024-03",
			tmpl:     "a.html",
			wantErr:  true,
			wantKind: models.StorageErrPath,
		},
		{
			name:     "invalid period key",
			basePath: "/srv/reports",
			period:   "2024-3",
			tmpl:     "a.html",
			wantErr:  true,
			wantKind: models.StorageErrPath,
		},
		{
			name:     "unresolved placeholder",
			basePath: "/srv/reports",
			period:   "2024-03",
			tmpl:     "{name}-{period}.html",
			wantErr:  true,
			wantKind: models.StorageErrPath,
		},
		{
			name:     "separator in file name",
			basePath: "/srv/reports",
			period:   "2024-03",
			tmpl:     "../escape.html",
			wantErr:  true,
			wantKind: models.StorageErrPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := r.Resolve(tt.basePath, tt.period, tt.tmpl)
			if tt.wantErr {
				var storageErr *models.StorageError
				require.ErrorAs(t, err, &storageErr)
				assert.Equal(t, tt.wantKind, storageErr.Kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, loc)
		})
	}
}

func TestPlaceWritesArtifact(t *testing.T) {
	r := NewResolver(nil)
	base := t.TempDir()

	loc, err := r.Resolve(base, "2024-03", "activity-{period}.html")
	require.NoError(t, err)

	require.NoError(t, r.Place(artifact("activity-2024-03", "<p>run one</p>"), loc))

	data, err := os.ReadFile(loc.FullPath)
	require.NoError(t, err)
	assert.Equal(t, "<p>run one</p>", string(data))
}

// Re-running for the same period and name must overwrite in place: one file,
// latest content, constant directory entry count.
func TestPlaceIdempotentOverwrite(t *testing.T) {
	r := NewResolver(nil)
	base := t.TempDir()

	loc, err := r.Resolve(base, "2024-03", "activity-{period}.html")
	require.NoError(t, err)

	require.NoError(t, r.Place(artifact("activity-2024-03", "first"), loc))
	require.NoError(t, r.Place(artifact("activity-2024-03", "second"), loc))
	require.NoError(t, r.Place(artifact("activity-2024-03", "third"), loc))

	entries, err := os.ReadDir(filepath.Join(base, "2024-03"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no duplicates, no leftover temp files")
	assert.Equal(t, "activity-2024-03.html", entries[0].Name())

	data, err := os.ReadFile(loc.FullPath)
	require.NoError(t, err)
	assert.Equal(t, "third", string(data))
}

func TestPlaceCreatesPeriodFolderOnce(t *testing.T) {
	r := NewResolver(nil)
	base := t.TempDir()

	loc, err := r.Resolve(base, "2024-03", "a.html")
	require.NoError(t, err)

	require.NoError(t, r.Place(artifact("a", "x"), loc))
	info, err := os.Stat(filepath.Join(base, "2024-03"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Existing folder is not an error.
	require.NoError(t, r.Place(artifact("a", "y"), loc))
}

func TestPlacePermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks are bypassed for root")
	}

	r := NewResolver(nil)
	base := t.TempDir()
	require.NoError(t, os.Chmod(base, 0500))
	t.Cleanup(func() { os.Chmod(base, 0755) })

	loc, err := r.Resolve(base, "2024-03", "a.html")
	require.NoError(t, err)

	err = r.Place(artifact("a", "x"), loc)
	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, models.StorageErrPermission, storageErr.Kind)
}

func TestCheckWritable(t *testing.T) {
	r := NewResolver(nil)

	base := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, r.CheckWritable(base))

	// The probe file must not linger.
	entries, err := os.ReadDir(base)
	require.NoError(t, err)
	assert.Empty(t, entries)

	err = r.CheckWritable("")
	var storageErr *models.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, models.StorageErrPath, storageErr.Kind)
}

func TestStorageErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want models.StorageErrorKind
	}{
		{"permission", fmt.Errorf("mkdir: %w", fs.ErrPermission), models.StorageErrPermission},
		{"not exist", fmt.Errorf("open: %w", fs.ErrNotExist), models.StorageErrPath},
		{"other io", errors.New("disk full"), models.StorageErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, storageError(tt.err, "/x").Kind)
		})
	}
}
