// This file implements the entry/term links table accessor. Links carry
// no state; (kind, entry_id, term_id) is unique and seq records insertion
// order.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// LinksTable reads and writes entry/term links.
type LinksTable struct {
	backend *Backend
}

// Attach links entryID to termID under kind. Attaching an existing pair is
// a no-op; the returned bool reports whether a row was inserted.
func (lt *LinksTable) Attach(ctx context.Context, kind types.Kind, entryID, termID string) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w: %q", types.ErrInvalidKind, kind)
	}
	if entryID == "" || termID == "" {
		return false, types.ErrInvalidID
	}
	db, err := lt.backend.conn()
	if err != nil {
		return false, err
	}
	res, err := db.ExecContext(ctx,
		"INSERT INTO links (kind, entry_id, term_id, created_at) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING",
		string(kind), entryID, termID, formatTime(now()),
	)
	if err != nil {
		return false, fmt.Errorf("attaching link: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// DetachEntry removes every link of kind for entryID.
func (lt *LinksTable) DetachEntry(ctx context.Context, kind types.Kind, entryID string) (int64, error) {
	if entryID == "" {
		return 0, types.ErrInvalidID
	}
	db, err := lt.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM links WHERE kind = ? AND entry_id = ?", string(kind), entryID)
	if err != nil {
		return 0, fmt.Errorf("detaching links: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByOwner removes every link of kind that touches one of the owner's
// terms or entries.
func (lt *LinksTable) DeleteByOwner(ctx context.Context, owner string, kind types.Kind) (int64, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	db, err := lt.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM links
WHERE kind = ?
AND (term_id IN (SELECT term_id FROM terms WHERE owner_id = ? AND kind = ?)
  OR entry_id IN (SELECT entry_id FROM entries WHERE owner_id = ?))`,
		string(kind), owner, string(kind), owner)
	if err != nil {
		return 0, fmt.Errorf("deleting links of owner: %w", err)
	}
	return res.RowsAffected()
}

// TermsForEntry returns the terms of kind linked to entryID ordered by
// name ascending.
func (lt *LinksTable) TermsForEntry(ctx context.Context, entryID string, kind types.Kind) ([]types.TermRef, error) {
	db, err := lt.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT t.term_id, t.name, t.category
FROM links l
JOIN terms t ON t.term_id = l.term_id AND t.kind = l.kind
WHERE l.kind = ? AND l.entry_id = ?
ORDER BY t.name ASC`, string(kind), entryID)
	if err != nil {
		return nil, fmt.Errorf("fetching terms for entry: %w", err)
	}
	return collect(rows, scanTermRef)
}

// EntryIDsByTerm pages through the entries linked to termID in link
// insertion order.
func (lt *LinksTable) EntryIDsByTerm(ctx context.Context, termID string, limit, offset int) ([]string, error) {
	if termID == "" {
		return nil, types.ErrInvalidID
	}
	db, err := lt.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT entry_id FROM links WHERE term_id = ? ORDER BY seq ASC LIMIT ? OFFSET ?",
		termID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("fetching entries by term: %w", err)
	}
	return collect(rows, func(s scanner) (string, error) {
		var id string
		err := s.Scan(&id)
		return id, err
	})
}

// CountForEntry returns the number of links of kind held by entryID.
func (lt *LinksTable) CountForEntry(ctx context.Context, kind types.Kind, entryID string) (int, error) {
	db, err := lt.backend.conn()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM links WHERE kind = ? AND entry_id = ?", string(kind), entryID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting links: %w", err)
	}
	return n, nil
}

// ListByOwner returns the links of every entry owned by owner, in
// insertion order.
func (lt *LinksTable) ListByOwner(ctx context.Context, owner string) ([]types.Link, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	db, err := lt.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT l.seq, l.kind, l.entry_id, l.term_id, l.created_at
FROM links l
JOIN entries e ON e.entry_id = l.entry_id
WHERE e.owner_id = ?
ORDER BY l.seq ASC`, owner)
	if err != nil {
		return nil, fmt.Errorf("fetching links: %w", err)
	}
	return collect(rows, func(s scanner) (types.Link, error) {
		var l types.Link
		var kind, createdAt string
		if err := s.Scan(&l.Seq, &kind, &l.EntryID, &l.TermID, &createdAt); err != nil {
			return types.Link{}, err
		}
		l.Kind = types.Kind(kind)
		var err error
		l.CreatedAt, err = parseTime(createdAt)
		return l, err
	})
}

func scanTermRef(s scanner) (types.TermRef, error) {
	var ref types.TermRef
	var category sql.NullString
	if err := s.Scan(&ref.ID, &ref.Name, &category); err != nil {
		return types.TermRef{}, err
	}
	ref.Category = stringPtr(category)
	return ref, nil
}
