// This file implements the entries table accessor.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

const entryColumns = "entry_id, owner_id, entry_date, content, ratings, created_at, updated_at"

// EntriesTable reads and writes journal entries.
type EntriesTable struct {
	backend *Backend
}

// Create inserts e. An empty EntryID is filled with a UUID v7 and zero
// timestamps are set to now.
func (et *EntriesTable) Create(ctx context.Context, e *types.Entry) error {
	db, err := et.backend.conn()
	if err != nil {
		return err
	}
	if err := checkOwner(e.OwnerID); err != nil {
		return err
	}
	if !types.ValidDate(e.Date) {
		return fmt.Errorf("%w: %q", types.ErrInvalidDate, e.Date)
	}
	ratings, err := encodeRatings(e.Ratings)
	if err != nil {
		return err
	}

	if e.EntryID == "" {
		e.EntryID = newID()
	}
	ts := now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = ts
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = ts
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.EntryID, e.OwnerID, e.Date, e.Content, ratings, formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicate
		}
		return fmt.Errorf("inserting entry: %w", err)
	}
	return nil
}

// Get retrieves an entry by ID. Returns ErrNotFound if absent.
func (et *EntriesTable) Get(ctx context.Context, id string) (types.Entry, error) {
	if id == "" {
		return types.Entry{}, types.ErrInvalidID
	}
	db, err := et.backend.conn()
	if err != nil {
		return types.Entry{}, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM entries WHERE entry_id = ?", id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Entry{}, types.ErrNotFound
		}
		return types.Entry{}, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return e, nil
}

// Update overwrites the mutable columns of e. Returns ErrNotFound if the
// row does not exist.
func (et *EntriesTable) Update(ctx context.Context, e types.Entry) error {
	db, err := et.backend.conn()
	if err != nil {
		return err
	}
	if !types.ValidDate(e.Date) {
		return fmt.Errorf("%w: %q", types.ErrInvalidDate, e.Date)
	}
	ratings, err := encodeRatings(e.Ratings)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		"UPDATE entries SET entry_date = ?, content = ?, ratings = ?, created_at = ?, updated_at = ? WHERE entry_id = ?",
		e.Date, e.Content, ratings, formatTime(e.CreatedAt), formatTime(e.UpdatedAt), e.EntryID,
	)
	if err != nil {
		return fmt.Errorf("updating entry: %w", err)
	}
	return requireAffected(res)
}

// Delete removes one entry row. Returns ErrNotFound if absent.
func (et *EntriesTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, err := et.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM entries WHERE entry_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting entry: %w", err)
	}
	return requireAffected(res)
}

// DeleteByOwner removes every entry of owner and returns the count.
func (et *EntriesTable) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	db, err := et.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM entries WHERE owner_id = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("deleting entries of owner: %w", err)
	}
	return res.RowsAffected()
}

// ByDate returns the owner's entries for date, oldest first.
func (et *EntriesTable) ByDate(ctx context.Context, owner, date string) ([]types.Entry, error) {
	return et.query(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE owner_id = ? AND entry_date = ? ORDER BY created_at ASC, entry_id ASC",
		owner, date)
}

// Range returns the owner's entries with from <= date <= to, ordered by
// date then creation time.
func (et *EntriesTable) Range(ctx context.Context, owner, from, to string) ([]types.Entry, error) {
	return et.query(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE owner_id = ? AND entry_date >= ? AND entry_date <= ? ORDER BY entry_date ASC, created_at ASC, entry_id ASC",
		owner, from, to)
}

// Last returns the owner's n most recently created entries.
func (et *EntriesTable) Last(ctx context.Context, owner string, n int) ([]types.Entry, error) {
	if n <= 0 {
		return []types.Entry{}, nil
	}
	return et.query(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE owner_id = ? ORDER BY created_at DESC, entry_id DESC LIMIT ?",
		owner, n)
}

// ListByOwner returns all entries of owner ordered by date.
func (et *EntriesTable) ListByOwner(ctx context.Context, owner string) ([]types.Entry, error) {
	return et.query(ctx,
		"SELECT "+entryColumns+" FROM entries WHERE owner_id = ? ORDER BY entry_date ASC, created_at ASC, entry_id ASC",
		owner)
}

// Dates returns the distinct entry dates of owner, ascending.
func (et *EntriesTable) Dates(ctx context.Context, owner string) ([]string, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	db, err := et.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		"SELECT DISTINCT entry_date FROM entries WHERE owner_id = ? ORDER BY entry_date ASC", owner)
	if err != nil {
		return nil, fmt.Errorf("fetching entry dates: %w", err)
	}
	return collect(rows, func(s scanner) (string, error) {
		var d string
		err := s.Scan(&d)
		return d, err
	})
}

func (et *EntriesTable) query(ctx context.Context, query string, owner string, args ...any) ([]types.Entry, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	db, err := et.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, append([]any{owner}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("fetching entries: %w", err)
	}
	return collect(rows, scanEntry)
}

// scanEntry hydrates one entries row.
func scanEntry(s scanner) (types.Entry, error) {
	var e types.Entry
	var ratings sql.NullString
	var createdAt, updatedAt string
	if err := s.Scan(&e.EntryID, &e.OwnerID, &e.Date, &e.Content, &ratings, &createdAt, &updatedAt); err != nil {
		return types.Entry{}, err
	}
	var err error
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return types.Entry{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return types.Entry{}, err
	}
	if ratings.Valid && ratings.String != "" {
		var r types.Ratings
		if err := json.Unmarshal([]byte(ratings.String), &r); err != nil {
			return types.Entry{}, fmt.Errorf("decoding ratings: %w", err)
		}
		if !r.Empty() {
			e.Ratings = &r
		}
	}
	return e, nil
}

// encodeRatings stores an empty payload as NULL.
func encodeRatings(r *types.Ratings) (sql.NullString, error) {
	if r.Empty() {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding ratings: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// requireAffected maps a zero-row write to ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading rows affected: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
