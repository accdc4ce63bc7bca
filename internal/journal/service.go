// Package journal is the entry service: dated entries, their ratings,
// term annotations and attachments, with ownership enforced on every call.
package journal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/associations"
	"github.com/mesh-intelligence/daybook/internal/attachments"
	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// EntryRepository is the entries table.
type EntryRepository interface {
	Create(ctx context.Context, e *types.Entry) error
	Get(ctx context.Context, id string) (types.Entry, error)
	Update(ctx context.Context, e types.Entry) error
	ByDate(ctx context.Context, owner, date string) ([]types.Entry, error)
	Range(ctx context.Context, owner, from, to string) ([]types.Entry, error)
	Last(ctx context.Context, owner string, n int) ([]types.Entry, error)
	Dates(ctx context.Context, owner string) ([]string, error)
}

// EntryDeleter runs the entry deletion cascade.
type EntryDeleter interface {
	DeleteEntry(ctx context.Context, owner, entryID string) error
}

// Service implements the entry operations.
type Service struct {
	entries EntryRepository
	assoc   *associations.Engine
	files   *attachments.Store
	deleter EntryDeleter
	clean   cleaner
	log     *logging.Logger
}

// New creates a Service.
func New(entries EntryRepository, assoc *associations.Engine, files *attachments.Store, deleter EntryDeleter, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewNop()
	}
	return &Service{
		entries: entries,
		assoc:   assoc,
		files:   files,
		deleter: deleter,
		clean:   newCleaner(),
		log:     log.Named("journal"),
	}
}

// UpdateInput carries the fields of an entry update. Nil term slices
// leave that kind untouched; an empty non-nil slice clears it.
type UpdateInput struct {
	Content   string
	Ratings   *types.Ratings
	Date      *string
	CreatedAt *time.Time

	Tags        []string
	Symptoms    []string
	Medications []string

	// TagsFromContent syncs tags from #hashtags in Content when Tags is
	// nil.
	TagsFromContent bool
}

// EntryView is an entry with everything attached to it.
type EntryView struct {
	types.Entry
	Tags        []types.TermRef    `json:"tags"`
	Symptoms    []types.TermRef    `json:"symptoms"`
	Medications []types.TermRef    `json:"medications"`
	Attachments []types.Attachment `json:"attachments"`
}

// Summary is a short form of an entry used by listings.
type Summary struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	Excerpt   string    `json:"excerpt"`
}

// Create stores a new entry for date.
func (s *Service) Create(ctx context.Context, owner, date, content string) (types.Entry, error) {
	if err := checkOwnerDate(owner, date); err != nil {
		return types.Entry{}, err
	}
	e := types.Entry{OwnerID: owner, Date: date, Content: s.clean.Clean(content)}
	if err := s.entries.Create(ctx, &e); err != nil {
		return types.Entry{}, errs.Internalf("create entry", err)
	}
	return e, nil
}

// Get returns an entry owned by owner.
func (s *Service) Get(ctx context.Context, owner, id string) (types.Entry, error) {
	if id == "" {
		return types.Entry{}, errs.Invalid("entry id is required")
	}
	e, err := s.entries.Get(ctx, id)
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

// Update rewrites an entry and syncs the term kinds present in in.
func (s *Service) Update(ctx context.Context, owner, id string, in UpdateInput) (types.Entry, error) {
	e, err := s.Get(ctx, owner, id)
	if err != nil {
		return types.Entry{}, err
	}
	if in.Date != nil {
		if !types.ValidDate(*in.Date) {
			return types.Entry{}, errs.Invalid("date must be a valid YYYY-MM-DD date")
		}
		e.Date = *in.Date
	}
	if in.CreatedAt != nil {
		e.CreatedAt = in.CreatedAt.UTC()
	}
	if err := in.Ratings.Validate(); err != nil {
		return types.Entry{}, errs.Wrap(errs.InvalidArgument, "ratings must be between 1 and 5", err)
	}
	e.Content = s.clean.Clean(in.Content)
	e.Ratings = nil
	if !in.Ratings.Empty() {
		e.Ratings = in.Ratings
	}
	e.UpdatedAt = time.Now().UTC()

	if err := s.entries.Update(ctx, e); err != nil {
		return types.Entry{}, errs.Internalf("update entry", err)
	}

	tags := in.Tags
	if tags == nil && in.TagsFromContent {
		tags = associations.ExtractHashtags(e.Content)
	}
	for _, sync := range []struct {
		kind  types.Kind
		names []string
	}{
		{types.KindTag, tags},
		{types.KindSymptom, in.Symptoms},
		{types.KindMedication, in.Medications},
	} {
		if sync.names == nil {
			continue
		}
		if _, err := s.assoc.Sync(ctx, owner, e.EntryID, sync.kind, sync.names); err != nil {
			return types.Entry{}, err
		}
	}
	return e, nil
}

// Delete removes an entry and everything attached to it.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	return s.deleter.DeleteEntry(ctx, owner, id)
}

// ByDate returns the owner's entries for date, oldest first.
func (s *Service) ByDate(ctx context.Context, owner, date string) ([]types.Entry, error) {
	if err := checkOwnerDate(owner, date); err != nil {
		return nil, err
	}
	list, err := s.entries.ByDate(ctx, owner, date)
	if err != nil {
		return nil, errs.Internalf("entries by date", err)
	}
	return list, nil
}

// Range returns the owner's entries dated from..to inclusive.
func (s *Service) Range(ctx context.Context, owner, from, to string) ([]types.Entry, error) {
	if err := checkOwnerDate(owner, from); err != nil {
		return nil, err
	}
	if !types.ValidDate(to) {
		return nil, errs.Invalid("date must be a valid YYYY-MM-DD date")
	}
	if to < from {
		return nil, errs.Invalid("range end is before its start")
	}
	list, err := s.entries.Range(ctx, owner, from, to)
	if err != nil {
		return nil, errs.Internalf("entries in range", err)
	}
	return list, nil
}

// Dates returns the distinct dates that have entries, ascending.
func (s *Service) Dates(ctx context.Context, owner string) ([]string, error) {
	if owner == "" {
		return nil, errs.Invalid("owner is required")
	}
	dates, err := s.entries.Dates(ctx, owner)
	if err != nil {
		return nil, errs.Internalf("entry dates", err)
	}
	return dates, nil
}

// Last summarizes the owner's n most recently created entries.
func (s *Service) Last(ctx context.Context, owner string, n int) ([]Summary, error) {
	if owner == "" {
		return nil, errs.Invalid("owner is required")
	}
	if n < 0 {
		return nil, errs.Invalid("count must not be negative")
	}
	list, err := s.entries.Last(ctx, owner, n)
	if err != nil {
		return nil, errs.Internalf("last entries", err)
	}
	out := make([]Summary, len(list))
	for i, e := range list {
		out[i] = Summary{ID: e.EntryID, Date: e.Date, CreatedAt: e.CreatedAt, Excerpt: Excerpt(e.Content)}
	}
	return out, nil
}

// WriteForDate upserts the first entry of date and syncs its tags from
// the content's hashtags. Empty content deletes every entry of the date
// and returns nil.
func (s *Service) WriteForDate(ctx context.Context, owner, date, content string) (*types.Entry, error) {
	existing, err := s.ByDate(ctx, owner, date)
	if err != nil {
		return nil, err
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), zap.String("date", date))

	if content == "" {
		for _, e := range existing {
			if err := s.deleter.DeleteEntry(ctx, owner, e.EntryID); err != nil {
				s.log.Warn(ctx, "could not delete entry", zap.String("entry", e.EntryID), zap.Error(err))
			}
		}
		return nil, nil
	}

	var e types.Entry
	if len(existing) == 0 {
		e, err = s.Create(ctx, owner, date, content)
		if err != nil {
			return nil, err
		}
	} else {
		e = existing[0]
		e.Content = s.clean.Clean(content)
		e.UpdatedAt = time.Now().UTC()
		if err := s.entries.Update(ctx, e); err != nil {
			return nil, errs.Internalf("update entry", err)
		}
	}
	if _, err := s.assoc.Sync(ctx, owner, e.EntryID, types.KindTag, associations.ExtractHashtags(e.Content)); err != nil {
		return nil, err
	}
	return &e, nil
}

// View returns an entry with its terms and attachments.
func (s *Service) View(ctx context.Context, owner, id string) (EntryView, error) {
	e, err := s.Get(ctx, owner, id)
	if err != nil {
		return EntryView{}, err
	}
	v := EntryView{Entry: e}
	for _, k := range []struct {
		kind types.Kind
		dst  *[]types.TermRef
	}{
		{types.KindTag, &v.Tags},
		{types.KindSymptom, &v.Symptoms},
		{types.KindMedication, &v.Medications},
	} {
		refs, err := s.assoc.TermsForEntry(ctx, id, k.kind)
		if err != nil {
			return EntryView{}, err
		}
		*k.dst = refs
	}
	if v.Attachments, err = s.files.ListForEntry(ctx, owner, id); err != nil {
		return EntryView{}, err
	}
	return v, nil
}

// EntriesByTerm pages through the owner's entries linked to termID.
// Link rows whose entry is gone or belongs to someone else are skipped.
func (s *Service) EntriesByTerm(ctx context.Context, owner, termID string, limit, offset int) ([]types.Entry, error) {
	if _, err := s.assoc.Term(ctx, owner, termID); err != nil {
		return nil, err
	}
	ids, err := s.assoc.EntryIDsByTerm(ctx, termID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := []types.Entry{}
	for _, id := range ids {
		e, err := s.entries.Get(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, errs.Internalf("get entry", err)
		}
		if e.OwnerID != owner {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func checkOwnerDate(owner, date string) error {
	if owner == "" {
		return errs.Invalid("owner is required")
	}
	if !types.ValidDate(date) {
		return errs.Invalid("date must be a valid YYYY-MM-DD date")
	}
	return nil
}
