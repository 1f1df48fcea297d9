package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/bootstrap"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// drainTimeout bounds how long the CLI waits for background pushes on exit.
const drainTimeout = 10 * time.Second

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configDir string
	profile   string
	verbose   bool
}

// session is an opened core and the function that releases it.
type session struct {
	service *app.QuoteService
	close   func(context.Context) error
}

// opener opens the quote core for one command invocation.
type opener func(ctx context.Context, opts *globalOptions) (*session, error)

// openRuntime loads configuration and opens the SQLite-backed core.
// Logs go to stderr so stdout carries only command output.
func openRuntime(ctx context.Context, opts *globalOptions) (*session, error) {
	cfg, err := config.LoadFrom(opts.configDir, opts.profile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}

	logger := logging.New(&logging.Config{
		Level:   level,
		Format:  "pretty",
		Service: "quotectl",
		Version: cfg.App.Version,
	})
	logging.SetDefault(logger)

	rt, err := bootstrap.New(ctx, cfg, bootstrap.Options{Logger: logger})
	if err != nil {
		return nil, err
	}

	return &session{service: rt.Core.Service, close: rt.Close}, nil
}

// cli is the command tree plus the session its subcommands share.
type cli struct {
	root *cobra.Command
	sess *session
}

// newCLI builds the command tree. open is called once per invocation,
// before the subcommand runs.
func newCLI(open opener) *cli {
	c := &cli{}
	opts := &globalOptions{}

	c.root = &cobra.Command{
		Use:   "quotectl",
		Short: "Manage the local quote collection",
		Long: `quotectl lists, adds and picks quotes, manages the category filter,
reconciles with the remote endpoint, and imports or exports quotes as JSON.

Configuration is read from configs/base.yaml, configs/{profile}.yaml and
APP_ environment variables, exactly as the server reads it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			s, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}

			c.sess = s

			return nil
		},
	}

	c.root.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "Directory containing configs/")
	c.root.PersistentFlags().StringVarP(&opts.profile, "profile", "p", "local", "Configuration profile")
	c.root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	service := func() *app.QuoteService { return c.sess.service }

	c.root.AddCommand(
		newListCmd(service),
		newAddCmd(service),
		newRandomCmd(service),
		newCategoriesCmd(service),
		newFilterCmd(service),
		newSyncCmd(service),
		newExportCmd(service),
		newImportCmd(service),
	)

	return c
}

// Execute runs the command named by args and then releases the session,
// whether or not the command failed.
func (c *cli) Execute(ctx context.Context, args []string) error {
	c.root.SetArgs(args)

	err := c.root.ExecuteContext(ctx)

	return errors.Join(err, c.close())
}

// close waits for background pushes, bounded by drainTimeout.
func (c *cli) close() error {
	if c.sess == nil {
		return nil
	}

	s := c.sess
	c.sess = nil

	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	if err := s.close(ctx); err != nil {
		slog.Warn("closing quote store", slog.Any("error", err))
		return err
	}

	return nil
}
