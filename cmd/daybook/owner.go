// Owner commands.
package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/events"
)

func (c *cli) newOwnerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Account-level operations",
	}
	cmd.AddCommand(c.newOwnerRemoveCmd())
	return cmd
}

func (c *cli) newOwnerRemoveCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Purge every entry, term, link and attachment of the owner",
		Long: `Remove runs the same purge as an owner-removed event. Every step is
attempted; steps that fail are reported and the command exits non-zero.
Running it again retries what is left.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			if !yes {
				return errs.Invalid("refusing to purge without --yes")
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				report := a.cascade.HandleOwnerRemoved(ctx, owner)
				res := events.Result{OwnerID: owner, OK: report.OK(), FailedSteps: report.FailedSteps()}
				if err := c.emit(cmd, res, func(w io.Writer) error {
					if report.OK() {
						_, err := fmt.Fprintf(w, "Removed all data of %s\n", owner)
						return err
					}
					_, err := fmt.Fprintf(w, "Purge of %s incomplete; failed steps: %s\n", owner, strings.Join(res.FailedSteps, ", "))
					return err
				}); err != nil {
					return err
				}
				if err := report.Err(); err != nil {
					return errs.Internalf("remove owner", err)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the purge")
	return cmd
}
