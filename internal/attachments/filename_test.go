package attachments

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/errs"
)

func TestSafeName(t *testing.T) {
	tests := []struct {
		name     string
		original string
		want     string
		blocked  bool
	}{
		{name: "plain", original: "photo.jpg", want: "photo.jpg"},
		{name: "extension lowered", original: "Scan.PDF", want: "Scan.pdf"},
		{name: "directories stripped", original: "../../etc/passwd.txt", want: "passwd.txt"},
		{name: "windows directories stripped", original: `C:\Users\me\notes.txt`, want: "notes.txt"},
		{name: "symbols replaced", original: "pa$$ word!.txt", want: "pa__ word_.txt"},
		{name: "unicode letters kept", original: "résumé (final)_v2-b.docx", want: "résumé (final)_v2-b.docx"},
		{name: "inner dots replaced", original: "archive.tar.gz", want: "archive_tar.gz"},
		{name: "no extension", original: "README", want: "README"},
		{name: "dotfile gets default base", original: ".gitignore", want: "file.gitignore"},
		{name: "empty base", original: "", want: "file"},
		{name: "php blocked", original: "shell.php", blocked: true},
		{name: "blocked case insensitive", original: "run.EXE", blocked: true},
		{name: "htaccess blocked", original: ".htaccess", blocked: true},
		{name: "nested blocked", original: "uploads/x.ps1", blocked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SafeName(tt.original)
			if tt.blocked {
				assert.True(t, errs.Is(err, errs.InvalidArgument))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUniqueName(t *testing.T) {
	ctx := context.Background()
	s := blob.NewFS(afero.NewMemMapFs())
	dir := "alice/Daybook/2026-02-13"

	got, err := uniqueName(ctx, s, dir, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", got)

	require.NoError(t, s.Write(ctx, dir+"/photo.jpg", []byte("1"), ""))
	require.NoError(t, s.Write(ctx, dir+"/photo (1).jpg", []byte("2"), ""))
	got, err = uniqueName(ctx, s, dir, "photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "photo (2).jpg", got)

	require.NoError(t, s.Write(ctx, dir+"/notes", []byte("3"), ""))
	got, err = uniqueName(ctx, s, dir, "notes")
	require.NoError(t, err)
	assert.Equal(t, "notes (1)", got)
}

func TestValidOwner(t *testing.T) {
	for owner, want := range map[string]bool{
		"alice":   true,
		"user-42": true,
		"":        false,
		".":       false,
		"..":      false,
		"a/b":     false,
		`a\b`:     false,
		"a..b":    false,
	} {
		assert.Equal(t, want, validOwner(owner), owner)
	}
}
