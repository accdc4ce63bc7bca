// Export command.
package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
)

func (c *cli) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Export the owner's rows as JSONL files",
		Long: `Export writes entries.jsonl, terms.jsonl, links.jsonl and
attachments.jsonl for the owner into dir. Attachment content is not
copied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				sum, err := a.backend.ExportOwner(ctx, owner, args[0])
				if err != nil {
					return errs.Internalf("export", err)
				}
				return c.emit(cmd, sum, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Exported %d entries, %d terms, %d links, %d attachments to %s\n",
						sum.Entries, sum.Terms, sum.Links, sum.Attachments, sum.Dir)
					return err
				})
			})
		},
	}
}
