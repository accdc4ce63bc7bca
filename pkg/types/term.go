package types

import "time"

// Term is a named dictionary entry (tag, symptom, or medication) scoped to
// one owner and kind.
type Term struct {
	// TermID is a UUID v7, generated on creation.
	TermID string `json:"term_id"`

	// OwnerID is the account that owns the term.
	OwnerID string `json:"owner_id"`

	// Kind selects the dictionary.
	Kind Kind `json:"kind"`

	// Name is the normalized term name, unique per (owner, kind).
	Name string `json:"name"`

	// Category is optional and only set for symptoms and medications.
	Category *string `json:"category,omitempty"`

	// CreatedAt is the timestamp of creation.
	CreatedAt time.Time `json:"created_at"`
}

// Ref returns the outward shape of the term.
func (t Term) Ref() TermRef {
	return TermRef{ID: t.TermID, Name: t.Name, Category: t.Category}
}

// TermRef is the {id, name, category?} shape returned to callers.
type TermRef struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category *string `json:"category,omitempty"`
}

// TermCount is a term with the number of entries linked to it.
type TermCount struct {
	TermRef
	Count int `json:"count"`
}
