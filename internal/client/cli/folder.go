package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/matsync/internal/models"
)

func (c *Cli) newFolderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "folder",
		Aliases: []string{"f"},
		Short:   "Manage folders",
	}
	cmd.AddCommand(
		c.newFolderAddCommand(),
		c.newFolderGetCommand(),
		c.newFolderListCommand(),
		c.newFolderUpdateCommand(),
		c.newFolderDeleteCommand(),
	)
	return cmd
}

func (c *Cli) newFolderAddCommand() *cobra.Command {
	var (
		f              models.Folder
		offlineCreated bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			saved, err := c.engine.Writer.SaveFolder(cmd.Context(), &f, offlineCreated)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Folder saved: %s\n", saved.ID)
			if !saved.Synced {
				c.io.Println("Pending sync: the change is queued until the server is reachable.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&f.ID, "id", "", "folder id (generated if empty)")
	cmd.Flags().StringVar(&f.Name, "name", "", "folder name")
	cmd.Flags().StringVar(&f.Description, "description", "", "folder description")
	cmd.Flags().StringVar(&f.ParentFolderID, "parent", "", "parent folder id")
	cmd.Flags().BoolVar(&offlineCreated, "offline-created", false, "treat the folder as created offline")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func (c *Cli) newFolderGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.engine.Data.GetFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := render(folderTmpl, f)
			if err != nil {
				return err
			}
			c.io.Printf("%s", out)
			return nil
		},
	}
}

func (c *Cli) newFolderListCommand() *cobra.Command {
	var (
		parentID string
		roots    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				folders []models.Folder
				err     error
			)
			if roots || parentID != "" {
				folders, err = c.engine.Data.ListChildFolders(cmd.Context(), parentID)
			} else {
				folders, err = c.engine.Data.ListFolders(cmd.Context())
			}
			if err != nil {
				return err
			}

			if len(folders) == 0 {
				c.io.Println("No folders found.")
				return nil
			}
			for _, f := range folders {
				c.io.Printf("%-36s  %s%s\n", f.ID, f.Name, syncMark(f.Synced))
			}
			c.io.Printf("\nTotal: %d\n", len(folders))
			return nil
		},
	}
	cmd.Flags().StringVar(&parentID, "parent", "", "only direct children of this folder")
	cmd.Flags().BoolVar(&roots, "roots", false, "only top-level folders")

	return cmd
}

func (c *Cli) newFolderUpdateCommand() *cobra.Command {
	var name, description, parentID string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.FolderPatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("description") {
				patch.Description = &description
			}
			if flags.Changed("parent") {
				patch.ParentFolderID = &parentID
			}

			f, err := c.engine.Writer.UpdateFolder(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Folder updated: %s\n", f.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&parentID, "parent", "", "new parent folder id (empty moves it to the top level)")

	return cmd
}

func (c *Cli) newFolderDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a folder (materials keep their folder reference)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.engine.Writer.DeleteFolder(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.io.Printf("✓ Folder deleted: %s\n", args[0])
			return nil
		},
	}
}
