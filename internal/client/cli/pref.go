package cli

import (
	"github.com/spf13/cobra"
)

func (c *Cli) newPrefCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pref",
		Short: "Manage preferences",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a preference (value is JSON or plain text)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := c.engine.Data.SetPreference(cmd.Context(), args[0], parseValue(args[1])); err != nil {
					return err
				}
				c.io.Printf("✓ %s saved\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Show a preference value",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				p, err := c.engine.Data.GetPreference(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				c.io.Println(string(p.Value))
				return nil
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List preferences",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				prefs, err := c.engine.Data.ListPreferences(cmd.Context())
				if err != nil {
					return err
				}
				if len(prefs) == 0 {
					c.io.Println("No preferences set.")
					return nil
				}
				for _, p := range prefs {
					c.io.Printf("%s = %s\n", p.Key, p.Value)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <key>",
			Short: "Delete a preference",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.engine.Data.DeletePreference(cmd.Context(), args[0]); err != nil {
					return err
				}
				c.io.Printf("✓ %s deleted\n", args[0])
				return nil
			},
		},
	)

	return cmd
}
