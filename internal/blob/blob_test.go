package blob_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/blob/blobtest"
)

func stores(t *testing.T) map[string]blob.Store {
	osfs, err := blob.NewOSFS(t.TempDir())
	require.NoError(t, err)
	return map[string]blob.Store{
		"memfs": blob.NewFS(afero.NewMemMapFs()),
		"osfs":  osfs,
		"s3":    blobtest.NewS3(t, "daybook-test"),
	}
}

func TestStoreContract(t *testing.T) {
	tests := []struct {
		name  string
		check func(t *testing.T, s blob.Store)
	}{
		{
			name: "write then read and exists",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				key := "alice/Daybook/2026-02-13/photo.jpg"
				require.NoError(t, s.Write(ctx, key, []byte("jpeg bytes"), "image/jpeg"))

				ok, err := s.Exists(ctx, key)
				require.NoError(t, err)
				assert.True(t, ok)

				data, err := s.Read(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, []byte("jpeg bytes"), data)
			},
		},
		{
			name: "write refuses to overwrite",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				key := "alice/Daybook/2026-02-13/a.txt"
				require.NoError(t, s.Write(ctx, key, []byte("one"), ""))
				assert.ErrorIs(t, s.Write(ctx, key, []byte("two"), ""), blob.ErrExist)

				data, err := s.Read(ctx, key)
				require.NoError(t, err)
				assert.Equal(t, []byte("one"), data)
			},
		},
		{
			name: "missing keys",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				ok, err := s.Exists(ctx, "nobody/x.txt")
				require.NoError(t, err)
				assert.False(t, ok)

				_, err = s.Read(ctx, "nobody/x.txt")
				assert.ErrorIs(t, err, blob.ErrNotExist)
				assert.ErrorIs(t, s.Remove(ctx, "nobody/x.txt"), blob.ErrNotExist)
			},
		},
		{
			name: "remove deletes the key",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				key := "alice/Daybook/2026-02-13/a.txt"
				require.NoError(t, s.Write(ctx, key, []byte("x"), "text/plain"))
				require.NoError(t, s.Remove(ctx, key))

				ok, err := s.Exists(ctx, key)
				require.NoError(t, err)
				assert.False(t, ok)
			},
		},
		{
			name: "remove dir keeps non-empty dirs",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				key := "alice/Daybook/2026-02-13/a.txt"
				require.NoError(t, s.Write(ctx, key, []byte("x"), ""))
				require.NoError(t, s.RemoveDir(ctx, "alice/Daybook/2026-02-13"))

				ok, err := s.Exists(ctx, key)
				require.NoError(t, err)
				assert.True(t, ok)
			},
		},
		{
			name: "remove all deletes the subtree only",
			check: func(t *testing.T, s blob.Store) {
				ctx := context.Background()
				for _, key := range []string{
					"alice/Daybook/2026-02-13/a.txt",
					"alice/Daybook/2026-02-14/b.txt",
					"bob/Daybook/2026-02-13/c.txt",
				} {
					require.NoError(t, s.Write(ctx, key, []byte(key), ""))
				}
				require.NoError(t, s.RemoveAll(ctx, "alice/Daybook"))

				for key, want := range map[string]bool{
					"alice/Daybook/2026-02-13/a.txt": false,
					"alice/Daybook/2026-02-14/b.txt": false,
					"bob/Daybook/2026-02-13/c.txt":   true,
				} {
					ok, err := s.Exists(ctx, key)
					require.NoError(t, err)
					assert.Equal(t, want, ok, key)
				}
				assert.NoError(t, s.RemoveAll(ctx, "carol/Daybook"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, s := range stores(t) {
				t.Run(name, func(t *testing.T) {
					tt.check(t, s)
				})
			}
		})
	}
}

func TestFSRemoveDirDropsEmptyDir(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	s := blob.NewFS(mem)

	key := "alice/Daybook/2026-02-13/a.txt"
	require.NoError(t, s.Write(ctx, key, []byte("x"), ""))
	require.NoError(t, s.Remove(ctx, key))
	require.NoError(t, s.RemoveDir(ctx, "alice/Daybook/2026-02-13"))

	ok, err := afero.DirExists(mem, "alice/Daybook/2026-02-13")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFSPermissionDenied(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "alice/a.txt", []byte("x"), 0o644))
	s := blob.NewFS(afero.NewReadOnlyFs(mem))

	assert.ErrorIs(t, s.Remove(ctx, "alice/a.txt"), blob.ErrPermission)
	assert.ErrorIs(t, s.Write(ctx, "alice/b.txt", []byte("x"), ""), blob.ErrPermission)
}
