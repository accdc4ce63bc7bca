// Root command and global flags.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/daybook/internal/errs"
	"github.com/mesh-intelligence/daybook/internal/paths"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// envOwner supplies the owner when --owner is not given.
const envOwner = "DAYBOOK_OWNER"

// cli holds the global flag values and the configuration loaded for the
// running command.
type cli struct {
	configDir string
	dataDir   string
	owner     string
	jsonMode  bool

	cfg types.Config
}

// newRootCmd creates the top-level "daybook" command with global flags and
// all subcommands registered.
func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:     "daybook",
		Short:   "A personal journal with tags, symptoms, medications and attachments",
		Version: version,
		// Errors are printed by run with their user-facing message.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.load()
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&c.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/daybook)")
	pf.StringVar(&c.dataDir, "data-dir", "", "data directory (default: $XDG_DATA_HOME/daybook)")
	pf.StringVar(&c.owner, "owner", "", "owner account ID (default: $"+envOwner+")")
	pf.BoolVar(&c.jsonMode, "json", false, "output as JSON")

	root.AddCommand(
		newVersionCmd(),
		c.newInitCmd(),
		c.newConfigCmd(),
		c.newEntryCmd(),
		c.newTermCmd(),
		c.newAttachCmd(),
		c.newOwnerCmd(),
		c.newExportCmd(),
		c.newListenCmd(),
	)
	return root
}

// load resolves the directories and reads the configuration.
func (c *cli) load() error {
	configDir, err := paths.ResolveConfigDir(c.configDir)
	if err != nil {
		return errs.Internalf("resolve config dir", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}
	cfg, err := decodeConfig(v, c.dataDir)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, err.Error(), err)
	}
	c.configDir = configDir
	c.cfg = cfg
	return nil
}

// requireOwner returns the owner from --owner or the environment.
func (c *cli) requireOwner() (string, error) {
	owner := c.owner
	if owner == "" {
		owner = os.Getenv(envOwner)
	}
	if owner == "" {
		return "", errs.Invalid("--owner is required")
	}
	return owner, nil
}
