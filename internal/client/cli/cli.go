// Package cli implements the matsync command tree.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iudanet/matsync/internal/client/api"
	"github.com/iudanet/matsync/internal/client/config"
	"github.com/iudanet/matsync/internal/client/engine"
	"github.com/iudanet/matsync/internal/client/iocli"
	"github.com/iudanet/matsync/internal/client/storage"
	"github.com/iudanet/matsync/internal/client/storage/boltdb"
	"github.com/iudanet/matsync/internal/client/storage/sqlite"
)

// PassphraseEnv holds the export passphrase for non-interactive use
const PassphraseEnv = "MATSYNC_EXPORT_PASSPHRASE"

// BuildInfo is printed by the version command
type BuildInfo struct {
	Version   string
	BuildDate string
	GitCommit string
}

// Cli holds the state shared by all commands of one invocation.
type Cli struct {
	io      iocli.IO
	cfg     *config.Config
	logger  *slog.Logger
	engine  *engine.Engine
	backend *api.Client
	build   BuildInfo
}

// New creates a Cli writing to io
func New(io iocli.IO, build BuildInfo) *Cli {
	return &Cli{io: io, build: build}
}

// Execute runs the command tree with args
func (c *Cli) Execute(ctx context.Context, args []string) error {
	root := c.NewRootCommand()
	root.SetArgs(args)

	// PersistentPostRunE не вызывается, если команда вернула ошибку
	err := root.ExecuteContext(ctx)
	if closeErr := c.teardown(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// setup загружает конфиг и собирает движок перед запуском команды
func (c *Cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = cfg.NewLogger(cmd.ErrOrStderr())

	store, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	opts := engine.Options{
		Store:  store,
		Logger: c.logger,
	}
	if cfg.ServerURL != "" {
		c.backend = api.NewClient(cfg.ServerURL, cfg.APIToken).WithLogger(c.logger.With("component", "api"))
		opts.Backend = c.backend
		opts.Prober = c.backend
	}

	e, err := engine.New(cmd.Context(), opts)
	if err != nil {
		_ = store.Close()
		return err
	}
	c.engine = e

	return nil
}

func (c *Cli) teardown() error {
	if c.engine == nil {
		return nil
	}
	err := c.engine.Close()
	c.engine = nil
	return err
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := sqlite.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return s, nil
	default:
		s, err := boltdb.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return s, nil
	}
}

// printJSON печатает значение в виде отформатированного JSON
func (c *Cli) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	c.io.Println(string(data))
	return nil
}

// parseValue принимает JSON, иначе трактует ввод как строку
func parseValue(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	data, _ := json.Marshal(s)
	return data
}
