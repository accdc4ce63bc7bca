// Term commands: the tag, symptom and medication catalogs.
package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func (c *cli) newTermCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "term",
		Short: "Work with tags, symptoms and medications",
		Long: `Term commands operate on one association kind at a time.

Valid kinds: tag, symptom, medication (plural spellings are accepted).`,
	}
	cmd.AddCommand(
		c.newTermListCmd(),
		c.newTermSyncCmd(),
		c.newTermCloudCmd(),
		c.newTermShowCmd(),
		c.newTermEntriesCmd(),
		c.newTermCategorizeCmd(),
	)
	return cmd
}

func parseKind(s string) (types.Kind, error) {
	k, err := types.ParseKind(s)
	if err != nil {
		return "", errs.Wrap(errs.InvalidArgument, fmt.Sprintf("unknown kind %q (valid: tag, symptom, medication)", s), err)
	}
	return k, nil
}

func (c *cli) newTermListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind> <entry-id>",
		Short: "List the terms of one kind linked to an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.journal.Get(ctx, owner, args[1]); err != nil {
					return err
				}
				refs, err := a.assoc.TermsForEntry(ctx, args[1], kind)
				if err != nil {
					return err
				}
				return c.emitRefs(cmd, refs)
			})
		},
	}
}

func (c *cli) newTermSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync <kind> <entry-id> [name...]",
		Short: "Replace the terms of one kind on an entry",
		Long: `Sync makes names the complete set of terms of kind on the entry.
Missing terms are created; terms left without any entry are removed.
With no names the entry loses every term of that kind.

Example:
  daybook term sync --owner alice symptom 0194f1c2-... headache nausea
  daybook term sync --owner alice tags 0194f1c2-...`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			entryID, names := args[1], args[2:]
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if _, err := a.journal.Get(ctx, owner, entryID); err != nil {
					return err
				}
				refs, err := a.assoc.Sync(ctx, owner, entryID, kind, names)
				if err != nil {
					return err
				}
				return c.emitRefs(cmd, refs)
			})
		},
	}
}

func (c *cli) newTermCloudCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cloud <kind>",
		Short: "Show every term of a kind with its entry count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				cloud, err := a.assoc.TermCloud(ctx, owner, kind)
				if err != nil {
					return err
				}
				return c.emit(cmd, cloud, func(w io.Writer) error {
					rows := make([][]string, len(cloud))
					for i, tc := range cloud {
						rows[i] = []string{tc.ID, tc.Name, orDash(deref(tc.Category)), strconv.Itoa(tc.Count)}
					}
					return table(w, []string{"ID", "NAME", "CATEGORY", "ENTRIES"}, rows)
				})
			})
		},
	}
}

func (c *cli) newTermShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <term-id>",
		Short: "Show one term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.assoc.Term(ctx, owner, args[0])
				if err != nil {
					return err
				}
				return c.emitTerm(cmd, t)
			})
		},
	}
}

func (c *cli) newTermEntriesCmd() *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "entries <term-id>",
		Short: "List the entries linked to a term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.journal.EntriesByTerm(ctx, owner, args[0], limit, offset)
				if err != nil {
					return err
				}
				return c.emitEntries(cmd, list)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "page size (0 = default)")
	cmd.Flags().IntVar(&offset, "offset", 0, "entries to skip")
	return cmd
}

func (c *cli) newTermCategorizeCmd() *cobra.Command {
	var clearCategory bool
	cmd := &cobra.Command{
		Use:   "categorize <term-id> [category]",
		Short: "Set or clear the category of a symptom or medication",
		Long: `Categorize files a symptom or medication under a category. Tags
cannot carry a category.

Example:
  daybook term categorize --owner alice 0194f1c2-... "pain"
  daybook term categorize --owner alice 0194f1c2-... --clear`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			var category *string
			switch {
			case clearCategory && len(args) == 2:
				return errs.Invalid("--clear takes no category")
			case !clearCategory && len(args) == 1:
				return errs.Invalid("category is required (or pass --clear)")
			case !clearCategory:
				category = &args[1]
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.assoc.Categorize(ctx, owner, args[0], category)
				if err != nil {
					return err
				}
				return c.emitTerm(cmd, t)
			})
		},
	}
	cmd.Flags().BoolVar(&clearCategory, "clear", false, "remove the category")
	return cmd
}

func (c *cli) emitRefs(cmd *cobra.Command, refs []types.TermRef) error {
	return c.emit(cmd, refs, func(w io.Writer) error {
		rows := make([][]string, len(refs))
		for i, r := range refs {
			rows[i] = []string{r.ID, r.Name, orDash(deref(r.Category))}
		}
		return table(w, []string{"ID", "NAME", "CATEGORY"}, rows)
	})
}

func (c *cli) emitTerm(cmd *cobra.Command, t types.Term) error {
	return c.emit(cmd, t, func(w io.Writer) error {
		fmt.Fprintf(w, "ID:       %s\n", t.TermID)
		fmt.Fprintf(w, "Kind:     %s\n", t.Kind)
		fmt.Fprintf(w, "Name:     %s\n", t.Name)
		_, err := fmt.Fprintf(w, "Category: %s\n", orDash(deref(t.Category)))
		return err
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
