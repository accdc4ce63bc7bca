// This file implements the catalog terms table accessor. One table holds
// all three kinds; every query is scoped by (owner, kind).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

const termColumns = "term_id, owner_id, kind, name, category, created_at"

// TermsTable reads and writes catalog terms.
type TermsTable struct {
	backend *Backend
}

// Get retrieves a term by ID. Returns ErrNotFound if absent.
func (tt *TermsTable) Get(ctx context.Context, id string) (types.Term, error) {
	if id == "" {
		return types.Term{}, types.ErrInvalidID
	}
	db, err := tt.backend.conn()
	if err != nil {
		return types.Term{}, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+termColumns+" FROM terms WHERE term_id = ?", id)
	t, err := scanTerm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Term{}, types.ErrNotFound
		}
		return types.Term{}, fmt.Errorf("getting term %s: %w", id, err)
	}
	return t, nil
}

// Find looks a term up by its unique (owner, kind, name). The name must
// already be normalized. Returns ErrNotFound if absent.
func (tt *TermsTable) Find(ctx context.Context, owner string, kind types.Kind, name string) (types.Term, error) {
	if err := checkOwner(owner); err != nil {
		return types.Term{}, err
	}
	db, err := tt.backend.conn()
	if err != nil {
		return types.Term{}, err
	}
	row := db.QueryRowContext(ctx,
		"SELECT "+termColumns+" FROM terms WHERE owner_id = ? AND kind = ? AND name = ?",
		owner, string(kind), name)
	t, err := scanTerm(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Term{}, types.ErrNotFound
		}
		return types.Term{}, fmt.Errorf("finding term: %w", err)
	}
	return t, nil
}

// Create inserts t. A uniqueness conflict on (owner, kind, name) returns
// ErrDuplicate so callers can re-fetch the winner.
func (tt *TermsTable) Create(ctx context.Context, t *types.Term) error {
	if err := checkOwner(t.OwnerID); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, t.Kind)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: empty term name", types.ErrInvalidData)
	}
	db, err := tt.backend.conn()
	if err != nil {
		return err
	}
	if t.TermID == "" {
		t.TermID = newID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now()
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO terms ("+termColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		t.TermID, t.OwnerID, string(t.Kind), t.Name, nullString(t.Category), formatTime(t.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicate
		}
		return fmt.Errorf("inserting term: %w", err)
	}
	return nil
}

// SetCategory sets or clears (nil) the category of a term.
func (tt *TermsTable) SetCategory(ctx context.Context, id string, category *string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, err := tt.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "UPDATE terms SET category = ? WHERE term_id = ?", nullString(category), id)
	if err != nil {
		return fmt.Errorf("updating term category: %w", err)
	}
	return requireAffected(res)
}

// Cloud returns the owner's terms of kind with their link counts. Terms
// without links are filtered out. Ordered by count DESC, then name ASC.
func (tt *TermsTable) Cloud(ctx context.Context, owner string, kind types.Kind) ([]types.TermCount, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	db, err := tt.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT t.term_id, t.name, t.category, COUNT(l.seq) AS cnt
FROM terms t
JOIN links l ON l.term_id = t.term_id AND l.kind = t.kind
WHERE t.owner_id = ? AND t.kind = ?
GROUP BY t.term_id, t.name, t.category
HAVING cnt > 0
ORDER BY cnt DESC, t.name ASC`, owner, string(kind))
	if err != nil {
		return nil, fmt.Errorf("fetching term cloud: %w", err)
	}
	return collect(rows, func(s scanner) (types.TermCount, error) {
		var tc types.TermCount
		var category sql.NullString
		if err := s.Scan(&tc.ID, &tc.Name, &category, &tc.Count); err != nil {
			return types.TermCount{}, err
		}
		tc.Category = stringPtr(category)
		return tc, nil
	})
}

// DeleteUnused removes the owner's terms of kind that have no links left
// and returns how many were removed.
func (tt *TermsTable) DeleteUnused(ctx context.Context, owner string, kind types.Kind) (int64, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	db, err := tt.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM terms
WHERE owner_id = ? AND kind = ?
AND NOT EXISTS (SELECT 1 FROM links l WHERE l.term_id = terms.term_id)`, owner, string(kind))
	if err != nil {
		return 0, fmt.Errorf("deleting unused terms: %w", err)
	}
	return res.RowsAffected()
}

// DeleteByOwner removes every term of owner regardless of links.
func (tt *TermsTable) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	db, err := tt.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM terms WHERE owner_id = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("deleting terms of owner: %w", err)
	}
	return res.RowsAffected()
}

// ListByOwner returns all terms of owner ordered by kind and name.
func (tt *TermsTable) ListByOwner(ctx context.Context, owner string) ([]types.Term, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	db, err := tt.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT "+termColumns+" FROM terms WHERE owner_id = ? ORDER BY kind ASC, name ASC", owner)
	if err != nil {
		return nil, fmt.Errorf("fetching terms: %w", err)
	}
	return collect(rows, scanTerm)
}

// scanTerm hydrates one terms row.
func scanTerm(s scanner) (types.Term, error) {
	var t types.Term
	var kind, createdAt string
	var category sql.NullString
	if err := s.Scan(&t.TermID, &t.OwnerID, &kind, &t.Name, &category, &createdAt); err != nil {
		return types.Term{}, err
	}
	t.Kind = types.Kind(kind)
	t.Category = stringPtr(category)
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Term{}, err
	}
	return t, nil
}
