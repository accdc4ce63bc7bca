// Output helpers: JSON with --json, aligned text otherwise.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// emit writes v as indented JSON in JSON mode and calls text otherwise.
func (c *cli) emit(cmd *cobra.Command, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	if c.jsonMode {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return errs.Internalf("encode output", err)
		}
		return nil
	}
	return text(w)
}

// table writes tab-separated rows with aligned columns.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func termNames(refs []types.TermRef) string {
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
		if r.Category != nil {
			names[i] += " (" + *r.Category + ")"
		}
	}
	return strings.Join(names, ", ")
}

func ratingString(r *types.Ratings) string {
	if r.Empty() {
		return "-"
	}
	part := func(label string, v *int) string {
		if v == nil {
			return label + "=-"
		}
		return fmt.Sprintf("%s=%d", label, *v)
	}
	return part("mood", r.Mood) + " " + part("wellbeing", r.Wellbeing)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
