// Package attachments stores files attached to journal entries. Content
// lives in a blob store under <owner>/<AppFolder>/<date>/<name>; metadata
// rows live in the relational store and record the path relative to the
// owner.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/blob"
	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/internal/metrics"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// MaxUploadSize is the largest accepted attachment, 50 MiB.
const MaxUploadSize = 50 << 20

// DefaultMimeType is recorded when the uploader sends none.
const DefaultMimeType = "application/octet-stream"

// writeAttempts bounds retries when a picked name is taken between the
// collision check and the write.
const writeAttempts = 3

// Repository is the attachment metadata storage.
type Repository interface {
	Create(ctx context.Context, a *types.Attachment) error
	Get(ctx context.Context, id string) (types.Attachment, error)
	ListByEntry(ctx context.Context, entryID string) ([]types.Attachment, error)
	ListByOwner(ctx context.Context, owner string) ([]types.Attachment, error)
	Delete(ctx context.Context, id string) error
	DeleteByEntry(ctx context.Context, entryID string) (int64, error)
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}

// EntryReader loads entries for ownership checks.
type EntryReader interface {
	Get(ctx context.Context, id string) (types.Entry, error)
}

// Options configures a Store.
type Options struct {
	// AppFolder is the per-owner root directory. Defaults to
	// types.DefaultAppFolder.
	AppFolder string
	Logger    *logging.Logger
	Metrics   *metrics.Metrics
}

// Store coordinates attachment rows and their blobs.
type Store struct {
	rows      Repository
	entries   EntryReader
	blobs     blob.Store
	appFolder string
	log       *logging.Logger
	metrics   *metrics.Metrics
}

// New creates a Store.
func New(rows Repository, entries EntryReader, blobs blob.Store, opts Options) *Store {
	if opts.AppFolder == "" {
		opts.AppFolder = types.DefaultAppFolder
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	return &Store{
		rows:      rows,
		entries:   entries,
		blobs:     blobs,
		appFolder: opts.AppFolder,
		log:       opts.Logger.Named("attachments"),
		metrics:   opts.Metrics,
	}
}

// UploadInput describes one file to attach.
type UploadInput struct {
	Owner        string
	EntryID      string
	EntryDate    string
	OriginalName string
	Content      []byte
	MimeType     string
}

// Upload validates the file, places it under the entry's date directory
// with a collision-free name and records it.
func (s *Store) Upload(ctx context.Context, in UploadInput) (types.Attachment, error) {
	if !validOwner(in.Owner) {
		return types.Attachment{}, errs.Invalid("invalid owner")
	}
	if !types.ValidDate(in.EntryDate) {
		return types.Attachment{}, errs.Invalid("entry date must be YYYY-MM-DD")
	}
	if len(in.Content) > MaxUploadSize {
		return types.Attachment{}, errs.Invalid("file exceeds the 50 MiB limit")
	}
	name, err := SafeName(in.OriginalName)
	if err != nil {
		return types.Attachment{}, err
	}
	if _, err := s.ownedEntry(ctx, in.Owner, in.EntryID); err != nil {
		return types.Attachment{}, err
	}
	ctx = logging.WithFields(ctx, logging.Owner(in.Owner), logging.Entry(in.EntryID))

	dir := path.Join(s.ownerRoot(in.Owner), in.EntryDate)
	var key string
	for attempt := 1; ; attempt++ {
		stored, err := uniqueName(ctx, s.blobs, dir, name)
		if err != nil {
			return types.Attachment{}, errs.Internalf("pick attachment name", err)
		}
		key = path.Join(dir, stored)
		err = s.blobs.Write(ctx, key, in.Content, in.MimeType)
		if err == nil {
			break
		}
		if !errors.Is(err, blob.ErrExist) || attempt == writeAttempts {
			return types.Attachment{}, errs.Internalf("write attachment", err)
		}
	}

	mime := strings.TrimSpace(in.MimeType)
	if mime == "" {
		mime = DefaultMimeType
	}
	a := types.Attachment{
		OwnerID:      in.Owner,
		EntryID:      in.EntryID,
		StoredPath:   strings.TrimPrefix(key, in.Owner+"/"),
		OriginalName: in.OriginalName,
		MimeType:     mime,
		SizeBytes:    int64(len(in.Content)),
	}
	if err := s.rows.Create(ctx, &a); err != nil {
		if rmErr := s.blobs.Remove(ctx, key); rmErr != nil {
			s.log.Warn(ctx, "orphaned attachment blob", zap.String("key", key), zap.Error(rmErr))
			s.metrics.CleanupFailed("upload_rollback")
		}
		return types.Attachment{}, errs.Internalf("record attachment", err)
	}
	s.metrics.Uploaded(a.SizeBytes)
	s.log.Info(ctx, "attachment uploaded", zap.String("id", a.AttachmentID), zap.Int64("size", a.SizeBytes))
	return a, nil
}

// ListForEntry returns the attachments of an entry owned by owner, oldest
// upload first.
func (s *Store) ListForEntry(ctx context.Context, owner, entryID string) ([]types.Attachment, error) {
	if _, err := s.ownedEntry(ctx, owner, entryID); err != nil {
		return nil, err
	}
	list, err := s.rows.ListByEntry(ctx, entryID)
	if err != nil {
		return nil, errs.Internalf("list attachments", err)
	}
	return list, nil
}

// GetByID returns one attachment owned by owner.
func (s *Store) GetByID(ctx context.Context, owner, id string) (types.Attachment, error) {
	if id == "" {
		return types.Attachment{}, errs.Invalid("attachment id is required")
	}
	a, err := s.rows.Get(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return types.Attachment{}, errs.Missing("attachment not found")
	}
	if err != nil {
		return types.Attachment{}, errs.Internalf("get attachment", err)
	}
	if a.OwnerID != owner {
		return types.Attachment{}, errs.Forbidden("attachment belongs to another owner")
	}
	return a, nil
}

// Content reads the blob at storedPath in the owner's space.
func (s *Store) Content(ctx context.Context, owner, storedPath string) ([]byte, error) {
	if !validOwner(owner) {
		return nil, errs.Invalid("invalid owner")
	}
	if storedPath == "" || strings.Contains(storedPath, "..") || path.IsAbs(storedPath) {
		return nil, errs.Invalid("invalid attachment path")
	}
	data, err := s.blobs.Read(ctx, path.Join(owner, storedPath))
	if errors.Is(err, blob.ErrNotExist) {
		return nil, errs.Missing("attachment content not found")
	}
	if err != nil {
		return nil, errs.Internalf("read attachment", err)
	}
	return data, nil
}

// Download returns an attachment owned by owner together with its content.
func (s *Store) Download(ctx context.Context, owner, id string) (types.Attachment, []byte, error) {
	a, err := s.GetByID(ctx, owner, id)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	data, err := s.Content(ctx, owner, a.StoredPath)
	if err != nil {
		return types.Attachment{}, nil, err
	}
	return a, data, nil
}

// Delete removes one attachment. A missing blob is tolerated; any other
// blob failure is returned with the row left in place.
func (s *Store) Delete(ctx context.Context, owner, id string) error {
	a, err := s.GetByID(ctx, owner, id)
	if err != nil {
		return err
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Entry(a.EntryID))

	key := s.key(a)
	if err := s.blobs.Remove(ctx, key); err != nil {
		if !errors.Is(err, blob.ErrNotExist) {
			return errs.Internalf("remove attachment blob", err)
		}
		s.log.Warn(ctx, "attachment blob already gone", zap.String("key", key))
	}
	if err := s.rows.Delete(ctx, a.AttachmentID); err != nil && !errors.Is(err, types.ErrNotFound) {
		return errs.Internalf("delete attachment row", err)
	}
	s.cleanupDir(ctx, path.Dir(key))
	return nil
}

// DeleteAllForEntry removes every attachment of an entry. Blob removal is
// best-effort; only the row deletion can fail the call.
func (s *Store) DeleteAllForEntry(ctx context.Context, owner, entryID string) error {
	if entryID == "" {
		return errs.Invalid("entry id is required")
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Entry(entryID))
	list, err := s.rows.ListByEntry(ctx, entryID)
	if err != nil {
		return errs.Internalf("list attachments", err)
	}

	dirs := map[string]bool{}
	for _, a := range list {
		key := s.key(a)
		dirs[path.Dir(key)] = true
		s.removeBlob(ctx, key)
	}
	if _, err := s.rows.DeleteByEntry(ctx, entryID); err != nil {
		return errs.Internalf("delete attachment rows", err)
	}
	for dir := range dirs {
		s.cleanupDir(ctx, dir)
	}
	return nil
}

// DeleteAllForOwner removes every attachment of owner: each blob, then
// the owner's whole tree, then the rows. Every step runs even when an
// earlier one failed; the returned error joins the failures.
func (s *Store) DeleteAllForOwner(ctx context.Context, owner string) error {
	if !validOwner(owner) {
		return errs.Invalid("invalid owner")
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner))

	var stepErrs []error
	list, err := s.rows.ListByOwner(ctx, owner)
	if err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("list attachments: %w", err))
	}
	for _, a := range list {
		if err := s.removeBlob(ctx, s.key(a)); err != nil {
			stepErrs = append(stepErrs, err)
		}
	}
	if err := s.blobs.RemoveAll(ctx, s.ownerRoot(owner)); err != nil {
		s.log.Warn(ctx, "owner attachment tree not removed", zap.Error(err))
		s.metrics.CleanupFailed("attachment_tree")
		stepErrs = append(stepErrs, fmt.Errorf("remove attachment tree: %w", err))
	}
	if _, err := s.rows.DeleteByOwner(ctx, owner); err != nil {
		stepErrs = append(stepErrs, fmt.Errorf("delete attachment rows: %w", err))
	}
	return errors.Join(stepErrs...)
}

// removeBlob deletes key, logging failures. A missing blob is not a
// failure.
func (s *Store) removeBlob(ctx context.Context, key string) error {
	err := s.blobs.Remove(ctx, key)
	if err == nil || errors.Is(err, blob.ErrNotExist) {
		return nil
	}
	s.log.Warn(ctx, "attachment blob not removed", zap.String("key", key), zap.Error(err))
	s.metrics.CleanupFailed("attachment_blob")
	return fmt.Errorf("remove blob: %w", err)
}

// cleanupDir drops dir if it is empty.
func (s *Store) cleanupDir(ctx context.Context, dir string) {
	if err := s.blobs.RemoveDir(ctx, dir); err != nil && !errors.Is(err, blob.ErrNotExist) {
		s.log.Debug(ctx, "date folder not removed", zap.String("dir", dir), zap.Error(err))
	}
}

// ownedEntry loads entryID and checks that it belongs to owner.
func (s *Store) ownedEntry(ctx context.Context, owner, entryID string) (types.Entry, error) {
	if entryID == "" {
		return types.Entry{}, errs.Invalid("entry id is required")
	}
	e, err := s.entries.Get(ctx, entryID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Entry{}, errs.Missing("entry not found")
	}
	if err != nil {
		return types.Entry{}, errs.Internalf("get entry", err)
	}
	if e.OwnerID != owner {
		return types.Entry{}, errs.Forbidden("entry belongs to another owner")
	}
	return e, nil
}

func (s *Store) ownerRoot(owner string) string {
	return path.Join(owner, s.appFolder)
}

func (s *Store) key(a types.Attachment) string {
	return path.Join(a.OwnerID, a.StoredPath)
}
