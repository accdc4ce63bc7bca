package types

import "fmt"

// Kind selects which dictionary an association term belongs to.
type Kind string

// The three fixed association kinds.
const (
	KindTag        Kind = "tag"
	KindSymptom    Kind = "symptom"
	KindMedication Kind = "medication"
)

// Kinds lists every association kind in cascade order.
var Kinds = []Kind{KindTag, KindSymptom, KindMedication}

// MaxTagLength is the longest normalized tag name, in characters.
const MaxTagLength = 50

// Valid reports whether k is one of the fixed kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTag, KindSymptom, KindMedication:
		return true
	}
	return false
}

// Categorized reports whether terms of this kind may carry a category.
func (k Kind) Categorized() bool {
	return k == KindSymptom || k == KindMedication
}

// Plural returns the collection name used in CLI output and export files.
func (k Kind) Plural() string {
	return string(k) + "s"
}

// ParseKind converts a user-supplied string into a Kind.
// It accepts singular and plural spellings.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if s == string(k) || s == k.Plural() {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}
