package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/matsync/internal/client/transfer"
	"github.com/iudanet/matsync/internal/validation"
)

func (c *Cli) newExportCommand() *cobra.Command {
	var (
		output  string
		encrypt bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export materials, folders and preferences as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if encrypt {
				passphrase, perr := c.readPassphrase(true)
				if perr != nil {
					return perr
				}
				data, err = c.engine.Transfer.ExportEncrypted(cmd.Context(), passphrase)
			} else {
				data, err = c.engine.Transfer.Export(cmd.Context())
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				c.io.Println(string(data))
				return nil
			}
			if err := os.WriteFile(output, data, 0o600); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			c.io.Printf("✓ Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the export with a passphrase")

	return cmd
}

func (c *Cli) newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace materials, folders and preferences with an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			if err := c.runImport(cmd.Context(), data); err != nil {
				return err
			}
			c.io.Println("✓ Data imported")
			return nil
		},
	}
}

func (c *Cli) runImport(ctx context.Context, data []byte) error {
	err := c.engine.Transfer.Replace(ctx, data)
	if !errors.Is(err, transfer.ErrEncrypted) {
		return err
	}

	passphrase, err := c.readPassphrase(false)
	if err != nil {
		return err
	}
	return c.engine.Transfer.ImportEncrypted(ctx, data, passphrase)
}

func (c *Cli) newClearCommand() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all local data, including queued changes and the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				answer, err := c.io.ReadInput("This deletes all local data and unsynced changes. Type 'yes' to continue: ")
				if err != nil {
					return err
				}
				if !strings.EqualFold(answer, "yes") {
					c.io.Println("Aborted.")
					return nil
				}
			}
			if err := c.engine.Transfer.ClearAllData(cmd.Context()); err != nil {
				return err
			}
			c.io.Println("✓ All local data cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")

	return cmd
}

func (c *Cli) newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "sweep",
		Short: "Remove expired cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := c.engine.Cache.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			c.io.Printf("✓ Removed %d expired entries\n", removed)
			return nil
		},
	})
	return cmd
}

// readPassphrase читает пароль экспорта: сначала из окружения, затем интерактивно
func (c *Cli) readPassphrase(confirm bool) (string, error) {
	if env := os.Getenv(PassphraseEnv); env != "" {
		return env, nil
	}

	passphrase, err := c.io.ReadPassword("Export passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if !confirm {
		return passphrase, nil
	}

	if err := validation.ValidatePassphrase(passphrase); err != nil {
		return "", err
	}
	again, err := c.io.ReadPassword("Repeat passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if again != passphrase {
		return "", errors.New("passphrases do not match")
	}
	return passphrase, nil
}
