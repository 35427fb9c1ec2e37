package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/iudanet/matsync/internal/client/config"
)

const annotationNoEngine = "matsync/no-engine"

// NewRootCommand builds the matsync command tree
func (c *Cli) NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "matsync",
		Short: "Offline-first local store and sync engine for study materials",
		Long: `matsync keeps materials, folders and preferences in a local database and
replays changes made while offline against the server once it is reachable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoEngine] == "true" {
				return nil
			}
			return c.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.teardown()
		},
	}

	root.SetOut(c.io)
	root.SetErr(c.io)
	config.RegisterFlags(root.PersistentFlags())

	root.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
	)

	for _, cmd := range []*cobra.Command{
		c.newMaterialCommand(),
		c.newFolderCommand(),
		c.newPrefCommand(),
		c.newExportCommand(),
		c.newImportCommand(),
		c.newClearCommand(),
		c.newCacheCommand(),
	} {
		cmd.GroupID = "data"
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{
		c.newSyncCommand(),
		c.newStatusCommand(),
		c.newWatchCommand(),
	} {
		cmd.GroupID = "sync"
		root.AddCommand(cmd)
	}
	root.AddCommand(c.newVersionCommand())

	return root
}

var errNoServer = errors.New("server URL is not configured (use --server or server_url in config)")

func (c *Cli) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationNoEngine: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			c.io.Println("matsync")
			c.io.Printf("Version:    %s\n", c.build.Version)
			c.io.Printf("Build Date: %s\n", c.build.BuildDate)
			c.io.Printf("Git Commit: %s\n", c.build.GitCommit)
		},
	}
}
