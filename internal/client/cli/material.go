package cli

import (
	"github.com/spf13/cobra"

	"github.com/iudanet/matsync/internal/models"
)

func (c *Cli) newMaterialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "material",
		Aliases: []string{"m"},
		Short:   "Manage materials",
	}
	cmd.AddCommand(
		c.newMaterialAddCommand(),
		c.newMaterialGetCommand(),
		c.newMaterialListCommand(),
		c.newMaterialUpdateCommand(),
		c.newMaterialDeleteCommand(),
	)
	return cmd
}

func (c *Cli) newMaterialAddCommand() *cobra.Command {
	var (
		m              models.Material
		content        string
		offlineCreated bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a material",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if content != "" {
				m.Content = parseValue(content)
			}
			saved, err := c.engine.Writer.SaveMaterial(cmd.Context(), &m, offlineCreated)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Material saved: %s\n", saved.ID)
			if !saved.Synced {
				c.io.Println("Pending sync: the change is queued until the server is reachable.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&m.ID, "id", "", "material id (generated if empty)")
	cmd.Flags().StringVar(&m.Title, "title", "", "material title")
	cmd.Flags().StringVar(&m.FileType, "type", "", "file type, e.g. pdf")
	cmd.Flags().StringVar(&m.FolderID, "folder", "", "folder id")
	cmd.Flags().StringVar(&content, "content", "", "content (JSON or plain text)")
	cmd.Flags().BoolVar(&offlineCreated, "offline-created", false, "treat the material as created offline")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func (c *Cli) newMaterialGetCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.engine.Data.GetMaterial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return c.printJSON(m)
			}
			out, err := render(materialTmpl, m)
			if err != nil {
				return err
			}
			c.io.Printf("%s", out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}

func (c *Cli) newMaterialListCommand() *cobra.Command {
	var (
		folderID string
		unsynced bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List materials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				materials []models.Material
				err       error
			)
			switch {
			case unsynced:
				materials, err = c.engine.Data.ListUnsyncedMaterials(cmd.Context())
			case folderID != "":
				materials, err = c.engine.Data.ListMaterialsByFolder(cmd.Context(), folderID)
			default:
				materials, err = c.engine.Data.ListMaterials(cmd.Context())
			}
			if err != nil {
				return err
			}

			if len(materials) == 0 {
				c.io.Println("No materials found.")
				return nil
			}
			for _, m := range materials {
				c.io.Printf("%-36s  %-6s  %s%s\n", m.ID, m.FileType, m.Title, syncMark(m.Synced))
			}
			c.io.Printf("\nTotal: %d\n", len(materials))
			return nil
		},
	}
	cmd.Flags().StringVar(&folderID, "folder", "", "only materials of this folder")
	cmd.Flags().BoolVar(&unsynced, "unsynced", false, "only materials not yet synced")

	return cmd
}

func (c *Cli) newMaterialUpdateCommand() *cobra.Command {
	var title, fileType, folderID, content string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch models.MaterialPatch
			flags := cmd.Flags()
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("type") {
				patch.FileType = &fileType
			}
			if flags.Changed("folder") {
				patch.FolderID = &folderID
			}
			if flags.Changed("content") {
				patch.Content = parseValue(content)
			}

			m, err := c.engine.Writer.UpdateMaterial(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			c.io.Printf("✓ Material updated: %s\n", m.ID)
			if !m.Synced {
				c.io.Println("Pending sync: the change is queued until the server is reachable.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&fileType, "type", "", "new file type")
	cmd.Flags().StringVar(&folderID, "folder", "", "new folder id (empty removes it from its folder)")
	cmd.Flags().StringVar(&content, "content", "", "new content (JSON or plain text)")

	return cmd
}

func (c *Cli) newMaterialDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.engine.Writer.DeleteMaterial(cmd.Context(), args[0]); err != nil {
				return err
			}
			c.io.Printf("✓ Material deleted: %s\n", args[0])
			return nil
		},
	}
}

func syncMark(synced bool) string {
	if synced {
		return ""
	}
	return "  (pending sync)"
}
