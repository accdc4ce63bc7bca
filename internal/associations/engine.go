// Package associations keeps the per-owner term catalog and the entry/term
// links in step. Sync replaces the links of one (entry, kind) pair and
// sweeps terms left without links in the same call.
package associations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/internal/metrics"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Pagination bounds for EntryIDsByTerm.
const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)

// TermRepository is the catalog storage used by the engine.
type TermRepository interface {
	Get(ctx context.Context, id string) (types.Term, error)
	Find(ctx context.Context, owner string, kind types.Kind, name string) (types.Term, error)
	Create(ctx context.Context, t *types.Term) error
	SetCategory(ctx context.Context, id string, category *string) error
	Cloud(ctx context.Context, owner string, kind types.Kind) ([]types.TermCount, error)
	DeleteUnused(ctx context.Context, owner string, kind types.Kind) (int64, error)
}

// LinkRepository is the link storage used by the engine.
type LinkRepository interface {
	Attach(ctx context.Context, kind types.Kind, entryID, termID string) (bool, error)
	DetachEntry(ctx context.Context, kind types.Kind, entryID string) (int64, error)
	TermsForEntry(ctx context.Context, entryID string, kind types.Kind) ([]types.TermRef, error)
	EntryIDsByTerm(ctx context.Context, termID string, limit, offset int) ([]string, error)
}

// Engine runs association sync, queries and cleanup for all three kinds.
type Engine struct {
	terms   TermRepository
	links   LinkRepository
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates an Engine. A nil logger discards output and nil metrics
// record nothing.
func New(terms TermRepository, links LinkRepository, log *logging.Logger, m *metrics.Metrics) *Engine {
	if log == nil {
		log = logging.NewNop()
	}
	return &Engine{terms: terms, links: links, log: log.Named("associations"), metrics: m}
}

// Sync replaces the kind links of entryID with names. Names are normalized
// and duplicates collapse to their first occurrence. Terms are created on
// demand and terms left without links are swept before returning.
func (e *Engine) Sync(ctx context.Context, owner, entryID string, kind types.Kind, names []string) ([]types.TermRef, error) {
	if err := checkKind("sync", kind); err != nil {
		return nil, err
	}
	if owner == "" || entryID == "" {
		return nil, errs.Invalid("owner and entry are required")
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Entry(entryID), zap.String("kind", string(kind)))

	if _, err := e.links.DetachEntry(ctx, kind, entryID); err != nil {
		return nil, errs.Internalf("detach links", err)
	}

	refs := []types.TermRef{}
	seen := map[string]bool{}
	for _, raw := range names {
		name, ok := Normalize(kind, raw)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true

		term, err := e.findOrCreate(ctx, owner, kind, name)
		if err != nil {
			return nil, err
		}
		inserted, err := e.links.Attach(ctx, kind, entryID, term.TermID)
		if err != nil {
			return nil, errs.Internalf("attach link", err)
		}
		if inserted {
			e.metrics.Attached(string(kind))
		}
		refs = append(refs, term.Ref())
	}

	e.sweep(ctx, owner, kind)
	return refs, nil
}

// findOrCreate resolves the catalog term for name. A concurrent insert of
// the same name surfaces as ErrDuplicate and is resolved by re-reading.
func (e *Engine) findOrCreate(ctx context.Context, owner string, kind types.Kind, name string) (types.Term, error) {
	term, err := e.terms.Find(ctx, owner, kind, name)
	if err == nil {
		return term, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return types.Term{}, errs.Internalf("find term", err)
	}

	term = types.Term{OwnerID: owner, Kind: kind, Name: name}
	err = e.terms.Create(ctx, &term)
	if err == nil {
		return term, nil
	}
	if !errors.Is(err, types.ErrDuplicate) {
		return types.Term{}, errs.Internalf("create term", err)
	}
	term, err = e.terms.Find(ctx, owner, kind, name)
	if err != nil {
		return types.Term{}, errs.Internalf("refetch term", err)
	}
	return term, nil
}

// sweep deletes the owner's terms of kind that have no links. Failures are
// logged and counted; the next sweep retries them.
func (e *Engine) sweep(ctx context.Context, owner string, kind types.Kind) {
	n, err := e.terms.DeleteUnused(ctx, owner, kind)
	if err != nil {
		e.log.Warn(ctx, "term sweep failed", zap.Error(err))
		e.metrics.CleanupFailed("term_sweep")
		return
	}
	if n > 0 {
		e.log.Debug(ctx, "swept unused terms", zap.Int64("count", n))
		e.metrics.Swept(string(kind), n)
	}
}

// TermsForEntry returns the kind terms linked to entryID ordered by name.
func (e *Engine) TermsForEntry(ctx context.Context, entryID string, kind types.Kind) ([]types.TermRef, error) {
	if err := checkKind("terms for entry", kind); err != nil {
		return nil, err
	}
	refs, err := e.links.TermsForEntry(ctx, entryID, kind)
	if err != nil {
		return nil, errs.Internalf("terms for entry", err)
	}
	return refs, nil
}

// TermCloud returns the owner's linked terms of kind with their counts,
// most used first.
func (e *Engine) TermCloud(ctx context.Context, owner string, kind types.Kind) ([]types.TermCount, error) {
	if err := checkKind("term cloud", kind); err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, errs.Invalid("owner is required")
	}
	cloud, err := e.terms.Cloud(ctx, owner, kind)
	if err != nil {
		return nil, errs.Internalf("term cloud", err)
	}
	return cloud, nil
}

// EntryIDsByTerm pages through the entries linked to termID in the order
// the links were written. A non-positive limit means DefaultPageSize.
func (e *Engine) EntryIDsByTerm(ctx context.Context, termID string, limit, offset int) ([]string, error) {
	if termID == "" {
		return nil, errs.Invalid("term id is required")
	}
	if offset < 0 {
		return nil, errs.Invalid("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	ids, err := e.links.EntryIDsByTerm(ctx, termID, limit, offset)
	if err != nil {
		return nil, errs.Internalf("entries by term", err)
	}
	return ids, nil
}

// RemoveAllForEntry detaches every kind link of entryID and sweeps the
// owner's terms that lost their last link.
func (e *Engine) RemoveAllForEntry(ctx context.Context, owner, entryID string, kind types.Kind) error {
	if err := checkKind("remove for entry", kind); err != nil {
		return err
	}
	if owner == "" || entryID == "" {
		return errs.Invalid("owner and entry are required")
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Entry(entryID), zap.String("kind", string(kind)))
	if _, err := e.links.DetachEntry(ctx, kind, entryID); err != nil {
		return errs.Internalf("detach links", err)
	}
	e.sweep(ctx, owner, kind)
	return nil
}

// Term returns one catalog term owned by owner.
func (e *Engine) Term(ctx context.Context, owner, termID string) (types.Term, error) {
	if termID == "" {
		return types.Term{}, errs.Invalid("term id is required")
	}
	term, err := e.terms.Get(ctx, termID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Term{}, errs.Missing("term not found")
	}
	if err != nil {
		return types.Term{}, errs.Internalf("get term", err)
	}
	if term.OwnerID != owner {
		return types.Term{}, errs.Forbidden("term belongs to another owner")
	}
	return term, nil
}

// Categorize sets the category of a symptom or medication term. A nil or
// blank category clears it.
func (e *Engine) Categorize(ctx context.Context, owner, termID string, category *string) (types.Term, error) {
	term, err := e.Term(ctx, owner, termID)
	if err != nil {
		return types.Term{}, err
	}
	if !term.Kind.Categorized() {
		return types.Term{}, errs.Invalid(fmt.Sprintf("%s terms have no category", term.Kind))
	}
	if category != nil {
		c := strings.TrimSpace(*category)
		category = &c
		if c == "" {
			category = nil
		}
	}
	if err := e.terms.SetCategory(ctx, termID, category); err != nil {
		return types.Term{}, errs.Internalf("set category", err)
	}
	term.Category = category
	return term, nil
}

// checkKind reports an unknown kind as an internal failure. Kinds come
// from code paths, never from free text.
func checkKind(op string, kind types.Kind) error {
	if kind.Valid() {
		return nil
	}
	return errs.Internalf(op, fmt.Errorf("%w: %q", types.ErrInvalidKind, kind))
}
