package types

import "time"

// Link associates one entry with one catalog term of a given kind.
// A link carries no state beyond its existence; Seq is the insertion
// sequence assigned by the store and used as the pagination order key.
type Link struct {
	Seq       int64     `json:"seq"`
	Kind      Kind      `json:"kind"`
	EntryID   string    `json:"entry_id"`
	TermID    string    `json:"term_id"`
	CreatedAt time.Time `json:"created_at"`
}
