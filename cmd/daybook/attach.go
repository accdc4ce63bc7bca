// Attachment commands: upload, list, get, delete.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/attachments"
	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

func (c *cli) newAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Manage files attached to entries",
	}
	cmd.AddCommand(
		c.newAttachUploadCmd(),
		c.newAttachListCmd(),
		c.newAttachGetCmd(),
		c.newAttachDeleteCmd(),
	)
	return cmd
}

func (c *cli) newAttachUploadCmd() *cobra.Command {
	var name, mimeType string
	cmd := &cobra.Command{
		Use:   "upload <entry-id> <file>",
		Short: "Attach a file to an entry",
		Long: `Upload stores a file under the entry's date. Names that already exist
get a " (n)" suffix. Executable and script extensions are refused.

Example:
  daybook attach upload --owner alice 0194f1c2-... ./scan.jpg
  daybook attach upload --owner alice 0194f1c2-... ./notes.txt --name "doctor notes.txt"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			entryID, file := args[0], args[1]
			content, err := readUpload(file)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(file)
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(filepath.Ext(name))
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				e, err := a.journal.Get(ctx, owner, entryID)
				if err != nil {
					return err
				}
				att, err := a.files.Upload(ctx, attachments.UploadInput{
					Owner:        owner,
					EntryID:      entryID,
					EntryDate:    e.Date,
					OriginalName: name,
					Content:      content,
					MimeType:     mimeType,
				})
				if err != nil {
					return err
				}
				return c.emitAttachments(cmd, []types.Attachment{att})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "file name to record (default: base name of <file>)")
	cmd.Flags().StringVar(&mimeType, "mime", "", "MIME type (default: from the extension)")
	return cmd
}

func (c *cli) newAttachListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <entry-id>",
		Short: "List the files attached to an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				list, err := a.files.ListForEntry(ctx, owner, args[0])
				if err != nil {
					return err
				}
				return c.emitAttachments(cmd, list)
			})
		},
	}
}

func (c *cli) newAttachGetCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "get <attachment-id>",
		Short: "Write an attachment's content to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				_, data, err := a.files.Download(ctx, owner, args[0])
				if err != nil {
					return err
				}
				if out == "" || out == "-" {
					if _, err := cmd.OutOrStdout().Write(data); err != nil {
						return errs.Internalf("write stdout", err)
					}
					return nil
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return errs.Wrap(errs.InvalidArgument, fmt.Sprintf("cannot write %s", out), err)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "destination file (default: stdout)")
	return cmd
}

func (c *cli) newAttachDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <attachment-id>",
		Short: "Delete an attachment and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := c.requireOwner()
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.files.Delete(ctx, owner, args[0]); err != nil {
					return err
				}
				return c.emit(cmd, map[string]string{"deleted": args[0]}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted attachment %s\n", args[0])
					return err
				})
			})
		},
	}
}

func (c *cli) emitAttachments(cmd *cobra.Command, list []types.Attachment) error {
	return c.emit(cmd, list, func(w io.Writer) error {
		rows := make([][]string, len(list))
		for i, a := range list {
			rows[i] = []string{a.AttachmentID, a.StoredPath, a.MimeType, strconv.FormatInt(a.SizeBytes, 10)}
		}
		return table(w, []string{"ID", "PATH", "TYPE", "BYTES"}, rows)
	})
}

// readUpload reads a local file, refusing anything over the upload limit
// before loading it.
func readUpload(file string) ([]byte, error) {
	info, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errs.Invalid(fmt.Sprintf("file %s does not exist", file))
	}
	if err != nil {
		return nil, errs.Internalf("stat upload", err)
	}
	if info.IsDir() {
		return nil, errs.Invalid(fmt.Sprintf("%s is a directory", file))
	}
	if info.Size() > attachments.MaxUploadSize {
		return nil, errs.Invalid("file exceeds the 50 MiB limit")
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errs.Internalf("read upload", err)
	}
	return data, nil
}
