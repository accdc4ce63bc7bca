package associations

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Normalize returns the catalog form of name for kind and whether it should
// be kept. Tags are lower-cased and capped at types.MaxTagLength runes;
// symptoms and medications keep their case.
func Normalize(kind types.Kind, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if kind == types.KindTag {
		name = strings.ToLower(name)
	}
	if name == "" {
		return "", false
	}
	if kind == types.KindTag && utf8.RuneCountInString(name) > types.MaxTagLength {
		return "", false
	}
	return name, true
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)

// ExtractHashtags returns the distinct #hashtags of content, lower-cased,
// in order of first appearance. Tags longer than types.MaxTagLength runes
// are dropped.
func ExtractHashtags(content string) []string {
	out := []string{}
	seen := map[string]bool{}
	for _, m := range hashtagPattern.FindAllStringSubmatch(content, -1) {
		tag, ok := Normalize(types.KindTag, m[1])
		if !ok || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
