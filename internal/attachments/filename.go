package attachments

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/errs"
)

// blockedExtensions are refused regardless of the declared MIME type.
var blockedExtensions = map[string]bool{
	"php": true, "phtml": true, "php3": true, "php4": true, "php5": true, "phps": true,
	"exe": true, "bat": true, "cmd": true, "com": true,
	"sh": true, "bash": true, "js": true, "vbs": true, "wsf": true, "ps1": true,
	"htaccess": true, "htpasswd": true,
}

// maxCollisions bounds the " (n)" suffix search.
const maxCollisions = 10000

// splitName drops any directory part of name and splits it at the last
// dot. ".htaccess" yields an empty base and extension "htaccess".
func splitName(name string) (base, ext string) {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

// sanitizeBase replaces every rune that is not a letter, digit, space,
// '-', '(', ')' or '_' with '_'.
func sanitizeBase(base string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r == '-', r == '(', r == ')', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}

func joinName(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// SafeName validates originalName and returns the name it is stored
// under, before collision handling.
func SafeName(originalName string) (string, error) {
	base, ext := splitName(originalName)
	ext = strings.ToLower(ext)
	if blockedExtensions[ext] {
		return "", errs.Invalid(fmt.Sprintf("file type .%s is not allowed", ext))
	}
	base = sanitizeBase(base)
	if base == "" {
		base = "file"
	}
	name := joinName(base, ext)
	if strings.Contains(name, "..") {
		return "", errs.Invalid("invalid file name")
	}
	return name, nil
}

// uniqueName returns name, or "base (n).ext" with the smallest n >= 1 that
// is free in dir.
func uniqueName(ctx context.Context, blobs blob.Store, dir, name string) (string, error) {
	ok, err := blobs.Exists(ctx, path.Join(dir, name))
	if err != nil {
		return "", err
	}
	if !ok {
		return name, nil
	}
	base, ext := splitName(name)
	for n := 1; n <= maxCollisions; n++ {
		candidate := joinName(fmt.Sprintf("%s (%d)", base, n), ext)
		ok, err := blobs.Exists(ctx, path.Join(dir, candidate))
		if err != nil {
			return "", err
		}
		if !ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free name for %s in %s", name, dir)
}

// validOwner reports whether owner can be used as a single path segment.
func validOwner(owner string) bool {
	if owner == "" || owner == "." || owner == ".." {
		return false
	}
	return !strings.ContainsAny(owner, `/\`) && !strings.Contains(owner, "..")
}
