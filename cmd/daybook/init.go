// Init and config commands.
package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/sqlite"
)

// initResult reports where init placed things.
type initResult struct {
	ConfigFile string `json:"config_file"`
	Database   string `json:"database"`
	Blob       string `json:"blob_backend"`
}

func (c *cli) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and data directories and the database",
		Long: `Init writes a default config.yaml when none exists, creates the data
directory and applies database migrations. Running it again is harmless.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				res := initResult{
					ConfigFile: filepath.Join(c.configDir, configFileExt),
					Database:   filepath.Join(a.cfg.DataDir, sqlite.DatabaseFile),
					Blob:       a.cfg.Blob.Backend,
				}
				return c.emit(cmd, res, func(w io.Writer) error {
					fmt.Fprintf(w, "Config:   %s\n", res.ConfigFile)
					fmt.Fprintf(w, "Database: %s\n", res.Database)
					_, err := fmt.Fprintf(w, "Blobs:    %s\n", res.Blob)
					return err
				})
			})
		},
	}
}

func (c *cli) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the configuration after files, environment and flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cfg.Blob.S3.SecretAccessKey != "" {
				cfg.Blob.S3.SecretAccessKey = "********"
			}
			return c.emit(cmd, cfg, func(w io.Writer) error {
				data, err := yaml.Marshal(&cfg)
				if err != nil {
					return errs.Internalf("encode config", err)
				}
				_, err = w.Write(data)
				return err
			})
		},
	})
	return cmd
}
