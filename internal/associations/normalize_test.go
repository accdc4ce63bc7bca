package associations

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		kind   types.Kind
		input  string
		want   string
		wantOK bool
	}{
		{name: "tag trimmed and lowered", kind: types.KindTag, input: "  Work  ", want: "work", wantOK: true},
		{name: "symptom keeps case", kind: types.KindSymptom, input: " Headache ", want: "Headache", wantOK: true},
		{name: "medication keeps case", kind: types.KindMedication, input: "IBU 400", want: "IBU 400", wantOK: true},
		{name: "blank skipped", kind: types.KindTag, input: " \t ", wantOK: false},
		{name: "long tag skipped", kind: types.KindTag, input: strings.Repeat("x", 51), wantOK: false},
		{name: "long symptom kept", kind: types.KindSymptom, input: strings.Repeat("x", 51), want: strings.Repeat("x", 51), wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Normalize(tt.kind, tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom(types.Kinds).Draw(t, "kind")
		name := rapid.String().Draw(t, "name")

		once, ok := Normalize(kind, name)
		if !ok {
			return
		}
		twice, ok := Normalize(kind, once)
		if !ok || twice != once {
			t.Fatalf("Normalize(%q) = %q, then %q (ok=%v)", name, once, twice, ok)
		}
		if kind == types.KindTag && utf8.RuneCountInString(once) > types.MaxTagLength {
			t.Fatalf("tag %q exceeds %d runes", once, types.MaxTagLength)
		}
	})
}

func TestExtractHashtags(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{name: "none", content: "plain text", want: []string{}},
		{name: "lowered and deduped", content: "#Work then #work and #home", want: []string{"work", "home"}},
		{name: "unicode letters digits dash underscore", content: "#Café_2026 #mid-day.", want: []string{"café_2026", "mid-day"}},
		{name: "bare hash ignored", content: "# heading ##", want: []string{}},
		{name: "long tag dropped", content: "#" + strings.Repeat("a", 51) + " #ok", want: []string{"ok"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractHashtags(tt.content))
		})
	}
}

// TestSyncProperties checks sync against a model: the result is the
// deduplicated normalized input, reads agree with it, and no term without
// links survives.
func TestSyncProperties(t *testing.T) {
	b := newBackend(t)
	e := New(b.Terms(), b.Links(), nil, nil)
	ctx := context.Background()
	nameGen := rapid.SampledFrom([]string{"a", "A", " a ", "b", "B ", "", "  ", "Cold", "cold", "x y"})

	round := 0
	rapid.Check(t, func(t *rapid.T) {
		round++
		owner := fmt.Sprintf("owner-%d", round)
		kind := rapid.SampledFrom(types.Kinds).Draw(t, "kind")
		entries := []string{"e1", "e2"}

		for step := 0; step < 3; step++ {
			entry := rapid.SampledFrom(entries).Draw(t, "entry")
			input := rapid.SliceOfN(nameGen, 0, 6).Draw(t, "names")

			refs, err := e.Sync(ctx, owner, owner+entry, kind, input)
			if err != nil {
				t.Fatalf("sync: %v", err)
			}

			var want []string
			seen := map[string]bool{}
			for _, n := range input {
				if norm, ok := Normalize(kind, n); ok && !seen[norm] {
					seen[norm] = true
					want = append(want, norm)
				}
			}
			got := names(refs)
			if len(want) == 0 {
				want = []string{}
			}
			if !assert.ObjectsAreEqual(want, got) {
				t.Fatalf("sync returned %v, want %v", got, want)
			}

			read, err := e.TermsForEntry(ctx, owner+entry, kind)
			if err != nil {
				t.Fatalf("terms for entry: %v", err)
			}
			if len(read) != len(refs) {
				t.Fatalf("read %d terms, sync returned %d", len(read), len(refs))
			}
		}

		terms, err := b.Terms().ListByOwner(ctx, owner)
		if err != nil {
			t.Fatalf("list terms: %v", err)
		}
		cloud, err := e.TermCloud(ctx, owner, kind)
		if err != nil {
			t.Fatalf("cloud: %v", err)
		}
		if len(terms) != len(cloud) {
			t.Fatalf("%d terms stored but %d linked", len(terms), len(cloud))
		}
	})
}
