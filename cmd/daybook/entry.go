// Entry commands: create, show, update, delete, list, dates, last, write.
package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/journal"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func (c *cli) newEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Create, read, update and delete journal entries",
	}
	cmd.AddCommand(
		c.newEntryCreateCmd(),
		c.newEntryShowCmd(),
		c.newEntryUpdateCmd(),
		c.newEntryDeleteCmd(),
		c.newEntryListCmd(),
		c.newEntryDatesCmd(),
		c.newEntryLastCmd(),
		c.newEntryWriteCmd(),
	)
	return cmd
}

// termFlags are the association flags shared by create and update.
type termFlags struct {
	tags        []string
	symptoms    []string
	medications []string
	hashtags    bool
	mood        int
	wellbeing   int
}

func (tf *termFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&tf.tags, "tag", nil, "tag names (repeatable; --tag= clears)")
	f.StringSliceVar(&tf.symptoms, "symptom", nil, "symptom names (repeatable; --symptom= clears)")
	f.StringSliceVar(&tf.medications, "medication", nil, "medication names (repeatable; --medication= clears)")
	f.BoolVar(&tf.hashtags, "hashtags", false, "sync tags from #hashtags in the content when --tag is absent")
	f.IntVar(&tf.mood, "mood", 0, "mood rating 1-5")
	f.IntVar(&tf.wellbeing, "wellbeing", 0, "wellbeing rating 1-5")
}

// apply copies the flags the user set onto in. Unset term flags leave
// that kind untouched.
func (tf *termFlags) apply(cmd *cobra.Command, in *journal.UpdateInput) {
	f := cmd.Flags()
	if f.Changed("tag") {
		in.Tags = nonNil(tf.tags)
	}
	if f.Changed("symptom") {
		in.Symptoms = nonNil(tf.symptoms)
	}
	if f.Changed("medication") {
		in.Medications = nonNil(tf.medications)
	}
	in.TagsFromContent = tf.hashtags
	if f.Changed("mood") || f.Changed("wellbeing") {
		r := types.Ratings{}
		if in.Ratings != nil {
			r = *in.Ratings
		}
		if f.Changed("mood") {
			r.Mood = intPtr(tf.mood)
		}
		if f.Changed("wellbeing") {
			r.Wellbeing = intPtr(tf.wellbeing)
		}
		in.Ratings = &r
	}
}

func (tf *termFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"tag", "symptom", "medication", "hashtags", "mood", "wellbeing"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func (c *cli) newEntryCreateCmd() *cobra.Command {
	var (
		date string
		tf   termFlags
	)
	cmd := &cobra.Command{
		Use:   "create [content | -]",
		Short: "Create an entry",
		Long: `Create stores a new entry. Content is taken from the arguments, or
from standard input when the only argument is "-".

Example:
  daybook entry create --owner alice "Slept badly #sleep"
  daybook entry create --owner alice --date 2026-02-13 --symptom headache --mood 2 -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			content, err := readContent(cmd, args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.journal.Create(ctx, owner, date, content)
				if err != nil {
					return err
				}
				if tf.changed(cmd) {
					in := journal.UpdateInput{Content: e.Content}
					tf.apply(cmd, &in)
					if _, err := a.journal.Update(ctx, owner, e.EntryID, in); err != nil {
						return err
					}
				}
				return c.showEntry(ctx, cmd, a, owner, e.EntryID)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "entry date (YYYY-MM-DD)")
	tf.register(cmd)
	return cmd
}

func (c *cli) newEntryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <entry-id>",
		Short: "Show an entry with its terms and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return c.showEntry(ctx, cmd, a, owner, args[0])
			})
		},
	}
}

func (c *cli) newEntryUpdateCmd() *cobra.Command {
	var (
		content      string
		date         string
		clearRatings bool
		tf           termFlags
	)
	cmd := &cobra.Command{
		Use:   "update <entry-id>",
		Short: "Update an entry",
		Long: `Update rewrites the fields given as flags. Term flags replace that
kind's terms; kinds without a flag are left as they are.

Example:
  daybook entry update --owner alice 0194f1c2-... --content "Better today" --mood 4
  daybook entry update --owner alice 0194f1c2-... --symptom= --medication ibuprofen`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			id := args[0]
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.journal.Get(ctx, owner, id)
				if err != nil {
					return err
				}
				in := journal.UpdateInput{Content: e.Content, Ratings: e.Ratings}
				if cmd.Flags().Changed("content") {
					in.Content = content
				}
				if cmd.Flags().Changed("date") {
					in.Date = &date
				}
				if clearRatings {
					in.Ratings = nil
				}
				tf.apply(cmd, &in)
				if _, err := a.journal.Update(ctx, owner, id, in); err != nil {
					return err
				}
				return c.showEntry(ctx, cmd, a, owner, id)
			})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "new content")
	cmd.Flags().StringVar(&date, "date", "", "move the entry to this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&clearRatings, "clear-ratings", false, "remove mood and wellbeing")
	tf.register(cmd)
	return cmd
}

func (c *cli) newEntryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Delete an entry with its links and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.journal.Delete(ctx, owner, args[0]); err != nil {
					return err
				}
				return c.emit(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted entry %s\n", args[0])
					return err
				})
			})
		},
	}
}

func (c *cli) newEntryListCmd() *cobra.Command {
	var date, from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries of one date or a date range",
		Long: `List prints the entries of --date, or of --from through --to.
Without flags it lists today's entries.

Example:
  daybook entry list --owner alice --date 2026-02-13
  daybook entry list --owner alice --from 2026-02-01 --to 2026-02-28 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			if (from == "") != (to == "") {
				return errs.Invalid("--from and --to must be given together")
			}
			if from != "" && cmd.Flags().Changed("date") {
				return errs.Invalid("--date cannot be combined with --from/--to")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				var (
					list []types.Entry
					err  error
				)
				if from != "" {
					list, err = a.journal.Range(ctx, owner, from, to)
				} else {
					list, err = a.journal.ByDate(ctx, owner, date)
				}
				if err != nil {
					return err
				}
				return c.emitEntries(cmd, list)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "entry date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&from, "from", "", "first date of the range")
	cmd.Flags().StringVar(&to, "to", "", "last date of the range")
	return cmd
}

func (c *cli) newEntryDatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates",
		Short: "List the dates that have entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				dates, err := a.journal.Dates(ctx, owner)
				if err != nil {
					return err
				}
				return c.emit(cmd, dates, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, strings.Join(dates, "\n"))
					return err
				})
			})
		},
	}
}

func (c *cli) newEntryLastCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Summarize the most recently created entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.journal.Last(ctx, owner, n)
				if err != nil {
					return err
				}
				return c.emit(cmd, list, func(w io.Writer) error {
					rows := make([][]string, len(list))
					for i, s := range list {
						rows[i] = []string{s.ID, s.Date, s.Excerpt}
					}
					return table(w, []string{"ID", "DATE", "EXCERPT"}, rows)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 5, "number of entries")
	return cmd
}

func (c *cli) newEntryWriteCmd() *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "write [content | -]",
		Short: "Write the day's entry, syncing tags from #hashtags",
		Long: `Write replaces the content of the first entry of --date, creating it
if needed, and syncs its tags from the #hashtags in the text. Empty
content deletes every entry of that date.

Example:
  daybook entry write --owner alice "Long walk #outdoors #rest"
  daybook entry write --owner alice --date 2026-02-13 ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			content, err := readContent(cmd, args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.journal.WriteForDate(ctx, owner, date, content)
				if err != nil {
					return err
				}
				if e == nil {
					return c.emit(cmd, map[string]string{"cleared": date}, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "Cleared entries of %s\n", date)
						return err
					})
				}
				return c.showEntry(ctx, cmd, a, owner, e.EntryID)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", today(), "entry date (YYYY-MM-DD)")
	return cmd
}

func (c *cli) showEntry(ctx context.Context, cmd *cobra.Command, a *app, owner, id string) error {
	v, err := a.journal.View(ctx, owner, id)
	if err != nil {
		return err
	}
	return c.emit(cmd, v, func(w io.Writer) error {
		fmt.Fprintf(w, "ID:          %s\n", v.EntryID)
		fmt.Fprintf(w, "Date:        %s\n", v.Date)
		fmt.Fprintf(w, "Ratings:     %s\n", ratingString(v.Ratings))
		fmt.Fprintf(w, "Tags:        %s\n", orDash(termNames(v.Tags)))
		fmt.Fprintf(w, "Symptoms:    %s\n", orDash(termNames(v.Symptoms)))
		fmt.Fprintf(w, "Medications: %s\n", orDash(termNames(v.Medications)))
		fmt.Fprintf(w, "Attachments: %d\n", len(v.Attachments))
		_, err := fmt.Fprintf(w, "\n%s\n", v.Content)
		return err
	})
}

func (c *cli) emitEntries(cmd *cobra.Command, list []types.Entry) error {
	return c.emit(cmd, list, func(w io.Writer) error {
		rows := make([][]string, len(list))
		for i, e := range list {
			rows[i] = []string{e.EntryID, e.Date, ratingString(e.Ratings), journal.Excerpt(e.Content)}
		}
		return table(w, []string{"ID", "DATE", "RATINGS", "EXCERPT"}, rows)
	})
}

// readContent joins args, or reads standard input when args is "-".
func readContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", errs.Internalf("read stdin", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	}
	return strings.Join(args, " "), nil
}

func today() string {
	return time.Now().Format(types.DateLayout)
}

func intPtr(v int) *int { return &v }

// nonNil keeps an explicitly cleared flag distinct from an absent one.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
