// Package cascade deletes entries and whole accounts across the link
// table, the term catalog, attachments and the entries table. Nothing in
// the store cascades on its own, so the order here is the contract.
package cascade

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/logging"
	"github.com/mesh-intelligence/daybook/internal/metrics"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// EntryStore is the entries table.
type EntryStore interface {
	Get(ctx context.Context, id string) (types.Entry, error)
	Delete(ctx context.Context, id string) error
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}

// Associations detaches an entry's terms and sweeps orphans.
type Associations interface {
	RemoveAllForEntry(ctx context.Context, owner, entryID string, kind types.Kind) error
}

// Attachments removes attachment rows together with their blobs.
type Attachments interface {
	DeleteAllForEntry(ctx context.Context, owner, entryID string) error
	DeleteAllForOwner(ctx context.Context, owner string) error
}

// LinkPurger bulk-deletes links by owner.
type LinkPurger interface {
	DeleteByOwner(ctx context.Context, owner string, kind types.Kind) (int64, error)
}

// TermPurger bulk-deletes catalog terms by owner.
type TermPurger interface {
	DeleteByOwner(ctx context.Context, owner string) (int64, error)
}

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Entries      EntryStore
	Associations Associations
	Attachments  Attachments
	Links        LinkPurger
	Terms        TermPurger
	Logger       *logging.Logger
	Metrics      *metrics.Metrics
}

// Coordinator runs entry and owner deletion in a fixed order.
type Coordinator struct {
	entries EntryStore
	assoc   Associations
	files   Attachments
	links   LinkPurger
	terms   TermPurger
	log     *logging.Logger
	metrics *metrics.Metrics
}

// New creates a Coordinator.
func New(d Deps) *Coordinator {
	log := d.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Coordinator{
		entries: d.Entries,
		assoc:   d.Associations,
		files:   d.Attachments,
		links:   d.Links,
		terms:   d.Terms,
		log:     log.Named("cascade"),
		metrics: d.Metrics,
	}
}

// DeleteEntry removes an entry owned by owner: its tag, symptom and
// medication links (sweeping orphaned terms), its attachments, then the
// row. The first failure stops the sequence and the entry row stays.
func (c *Coordinator) DeleteEntry(ctx context.Context, owner, entryID string) error {
	if entryID == "" {
		return errs.Invalid("entry id is required")
	}
	e, err := c.entries.Get(ctx, entryID)
	if errors.Is(err, types.ErrNotFound) {
		return errs.Missing("entry not found")
	}
	if err != nil {
		return errs.Internalf("get entry", err)
	}
	if e.OwnerID != owner {
		return errs.Forbidden("entry belongs to another owner")
	}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Entry(entryID), logging.Op("delete_entry"))

	for _, kind := range types.Kinds {
		if err := c.assoc.RemoveAllForEntry(ctx, owner, entryID, kind); err != nil {
			c.log.Error(ctx, "entry deletion aborted", zap.String("step", "links:"+string(kind)), zap.Error(err))
			return errs.Internalf("remove "+kind.Plural(), err)
		}
	}
	if err := c.files.DeleteAllForEntry(ctx, owner, entryID); err != nil {
		c.log.Error(ctx, "entry deletion aborted", zap.String("step", "attachments"), zap.Error(err))
		return errs.Internalf("remove attachments", err)
	}
	if err := c.entries.Delete(ctx, entryID); err != nil && !errors.Is(err, types.ErrNotFound) {
		return errs.Internalf("delete entry", err)
	}
	c.log.Info(ctx, "entry deleted")
	return nil
}

// Step names reported by HandleOwnerRemoved.
const (
	StepAttachments = "attachments"
	StepTerms       = "terms"
	StepEntries     = "entries"
)

// LinkStep returns the step name of the link purge for kind.
func LinkStep(kind types.Kind) string {
	return "links:" + string(kind)
}

// StepError is one failed purge step.
type StepError struct {
	Step string
	Err  error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e StepError) Unwrap() error { return e.Err }

// Report lists the steps of an owner purge that failed.
type Report struct {
	Owner  string
	Failed []StepError
}

// OK reports whether every step succeeded.
func (r Report) OK() bool { return len(r.Failed) == 0 }

// FailedSteps returns the names of the failed steps in run order.
func (r Report) FailedSteps() []string {
	steps := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		steps[i] = f.Step
	}
	return steps
}

// Err joins the step failures, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errList := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errList[i] = f
	}
	return errors.Join(errList...)
}

// HandleOwnerRemoved purges everything owner left behind: links per
// kind, attachments, terms, then entries. Every step runs regardless of
// earlier failures; failures are logged, counted and reported.
func (c *Coordinator) HandleOwnerRemoved(ctx context.Context, owner string) Report {
	report := Report{Owner: owner}
	ctx = logging.WithFields(ctx, logging.Owner(owner), logging.Op("owner_removed"))

	for _, kind := range types.Kinds {
		c.step(ctx, &report, LinkStep(kind), func() (int64, error) {
			return c.links.DeleteByOwner(ctx, owner, kind)
		})
	}
	c.step(ctx, &report, StepAttachments, func() (int64, error) {
		return 0, c.files.DeleteAllForOwner(ctx, owner)
	})
	c.step(ctx, &report, StepTerms, func() (int64, error) {
		return c.terms.DeleteByOwner(ctx, owner)
	})
	c.step(ctx, &report, StepEntries, func() (int64, error) {
		return c.entries.DeleteByOwner(ctx, owner)
	})

	c.metrics.OwnerRemoved()
	if report.OK() {
		c.log.Info(ctx, "owner data removed")
	} else {
		c.log.Warn(ctx, "owner data partially removed", zap.Strings("failed_steps", report.FailedSteps()))
	}
	return report
}

// step runs fn, converting a panic into a step failure.
func (c *Coordinator) step(ctx context.Context, report *Report, name string, fn func() (int64, error)) {
	n, err := func() (n int64, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return fn()
	}()
	if err != nil {
		c.log.Error(ctx, "owner cleanup step failed", zap.String("step", name), zap.Error(err))
		c.metrics.CleanupFailed(name)
		report.Failed = append(report.Failed, StepError{Step: name, Err: err})
		return
	}
	c.log.Debug(ctx, "owner cleanup step done", zap.String("step", name), zap.Int64("rows", n))
}
