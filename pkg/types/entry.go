package types

import "time"

// DateLayout is the calendar-date format of entry dates and date buckets.
const DateLayout = "2006-01-02"

// Entry is one dated journal entry. Several entries may share a date.
type Entry struct {
	// EntryID is a UUID v7, generated on creation.
	EntryID string `json:"entry_id"`

	// OwnerID is the account that owns the entry.
	OwnerID string `json:"owner_id"`

	// Date is the calendar date in DateLayout.
	Date string `json:"date"`

	// Content is the sanitized free text of the entry.
	Content string `json:"content"`

	// Ratings is the optional mood/wellbeing payload.
	Ratings *Ratings `json:"ratings,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Ratings holds the optional 1-5 scores recorded with an entry.
type Ratings struct {
	Mood      *int `json:"mood,omitempty" validate:"omitempty,min=1,max=5"`
	Wellbeing *int `json:"wellbeing,omitempty" validate:"omitempty,min=1,max=5"`
}

// Empty reports whether no score is set.
func (r *Ratings) Empty() bool {
	return r == nil || (r.Mood == nil && r.Wellbeing == nil)
}

// Validate checks that every set score lies in 1..5.
func (r *Ratings) Validate() error {
	if r == nil {
		return nil
	}
	return validateStruct(ErrInvalidRatings, r)
}

// ValidDate reports whether s is a real calendar date in DateLayout.
func ValidDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return t.Format(DateLayout) == s
}
