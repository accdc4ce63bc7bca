// This file implements the attachment metadata table accessor. Blob
// content is not stored here.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

const attachmentColumns = "attachment_id, owner_id, entry_id, stored_path, original_name, mime_type, size_bytes, uploaded_at"

// AttachmentsTable reads and writes attachment metadata rows.
type AttachmentsTable struct {
	backend *Backend
}

// Create inserts a. An empty AttachmentID is filled with a UUID v7 and a
// zero UploadedAt is set to now.
func (at *AttachmentsTable) Create(ctx context.Context, a *types.Attachment) error {
	if err := checkOwner(a.OwnerID); err != nil {
		return err
	}
	if a.EntryID == "" || a.StoredPath == "" {
		return types.ErrInvalidData
	}
	db, err := at.backend.conn()
	if err != nil {
		return err
	}
	if a.AttachmentID == "" {
		a.AttachmentID = newID()
	}
	if a.UploadedAt.IsZero() {
		a.UploadedAt = now()
	}
	_, err = db.ExecContext(ctx,
		"INSERT INTO attachments ("+attachmentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		a.AttachmentID, a.OwnerID, a.EntryID, a.StoredPath, a.OriginalName, a.MimeType, a.SizeBytes, formatTime(a.UploadedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.ErrDuplicate
		}
		return fmt.Errorf("inserting attachment: %w", err)
	}
	return nil
}

// Get retrieves an attachment by ID. Returns ErrNotFound if absent.
func (at *AttachmentsTable) Get(ctx context.Context, id string) (types.Attachment, error) {
	if id == "" {
		return types.Attachment{}, types.ErrInvalidID
	}
	db, err := at.backend.conn()
	if err != nil {
		return types.Attachment{}, err
	}
	row := db.QueryRowContext(ctx, "SELECT "+attachmentColumns+" FROM attachments WHERE attachment_id = ?", id)
	a, err := scanAttachment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Attachment{}, types.ErrNotFound
		}
		return types.Attachment{}, fmt.Errorf("getting attachment %s: %w", id, err)
	}
	return a, nil
}

// ListByEntry returns the attachments of entryID, oldest upload first.
func (at *AttachmentsTable) ListByEntry(ctx context.Context, entryID string) ([]types.Attachment, error) {
	return at.query(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE entry_id = ? ORDER BY uploaded_at ASC, attachment_id ASC",
		entryID)
}

// ListByOwner returns every attachment of owner, oldest upload first.
func (at *AttachmentsTable) ListByOwner(ctx context.Context, owner string) ([]types.Attachment, error) {
	if err := checkOwner(owner); err != nil {
		return nil, err
	}
	return at.query(ctx,
		"SELECT "+attachmentColumns+" FROM attachments WHERE owner_id = ? ORDER BY uploaded_at ASC, attachment_id ASC",
		owner)
}

// Delete removes one attachment row. Returns ErrNotFound if absent.
func (at *AttachmentsTable) Delete(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	db, err := at.backend.conn()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, "DELETE FROM attachments WHERE attachment_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting attachment: %w", err)
	}
	return requireAffected(res)
}

// DeleteByEntry removes every attachment row of entryID.
func (at *AttachmentsTable) DeleteByEntry(ctx context.Context, entryID string) (int64, error) {
	if entryID == "" {
		return 0, types.ErrInvalidID
	}
	return at.exec(ctx, "DELETE FROM attachments WHERE entry_id = ?", entryID)
}

// DeleteByOwner removes every attachment row of owner.
func (at *AttachmentsTable) DeleteByOwner(ctx context.Context, owner string) (int64, error) {
	if err := checkOwner(owner); err != nil {
		return 0, err
	}
	return at.exec(ctx, "DELETE FROM attachments WHERE owner_id = ?", owner)
}

func (at *AttachmentsTable) exec(ctx context.Context, query string, args ...any) (int64, error) {
	db, err := at.backend.conn()
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting attachments: %w", err)
	}
	return res.RowsAffected()
}

func (at *AttachmentsTable) query(ctx context.Context, query string, args ...any) ([]types.Attachment, error) {
	db, err := at.backend.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching attachments: %w", err)
	}
	return collect(rows, scanAttachment)
}

// scanAttachment hydrates one attachments row.
func scanAttachment(s scanner) (types.Attachment, error) {
	var a types.Attachment
	var uploadedAt string
	if err := s.Scan(&a.AttachmentID, &a.OwnerID, &a.EntryID, &a.StoredPath, &a.OriginalName, &a.MimeType, &a.SizeBytes, &uploadedAt); err != nil {
		return types.Attachment{}, err
	}
	var err error
	if a.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return types.Attachment{}, err
	}
	return a, nil
}
