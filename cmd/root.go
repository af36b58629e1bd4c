package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-demand-tracker/internal/config"
	"github.com/Tiliavir/trivial-demand-tracker/internal/routine"
	"github.com/Tiliavir/trivial-demand-tracker/internal/storage"
	"github.com/Tiliavir/trivial-demand-tracker/internal/store"
)

var (
	cfgPath string
	verbose bool
)

// app holds what PersistentPreRunE wires up for the subcommands.
var app struct {
	cfg     config.Config
	logger  *slog.Logger
	backend storage.Backend
	snap    *storage.Snapshot
	store   *store.Store
}

var rootCmd = &cobra.Command{
	Use:   "tdt",
	Short: "Trivial Demand Tracker – track routine and sporadic demands",
	Long: `tdt is a single-user command-line demand tracker.
It records routine and sporadic demands, marks them completed with a comment,
and reports the business hours spent on each.
Configuration lives in ~/.tdt/config.yaml; demands are stored in ~/.tdt/ by default.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app.backend != nil {
			_ = app.backend.Close()
		}
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.tdt/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(hoursCmd)
	rootCmd.AddCommand(routineCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(todoCmd)
}

// setup loads the config and opens the demand store.
func setup(cmd *cobra.Command, args []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	app.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(app.logger)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return usageError{err}
	}
	app.cfg = cfg

	cal, err := cfg.Calendar.Build()
	if err != nil {
		return usageError{err}
	}

	ctx := cmd.Context()
	backend, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return err
	}
	app.backend = backend
	app.snap = storage.NewSnapshot(backend, cfg.Storage.Key, cal.Location())

	s, err := store.New(ctx, app.snap, cal, store.WithLogger(app.logger))
	if errors.Is(err, storage.ErrCorrupt) {
		// Start from an empty snapshot; the unreadable one is kept as a backup.
		app.logger.Warn("stored demands unreadable, starting empty", "err", err)
		if err := app.snap.Discard(ctx); err != nil {
			return err
		}
		s, err = store.New(ctx, app.snap, cal, store.WithLogger(app.logger))
	}
	if err != nil {
		return err
	}
	app.store = s
	app.logger.Debug("store ready", "backend", cfg.Storage.Backend, "demands", s.Len())

	if cfg.Routines.AutoRecreate {
		if _, err := routine.Recreate(ctx, s, time.Now(), app.logger); err != nil {
			app.logger.Warn("routine recreation failed", "err", err)
		}
	}
	return nil
}

// usageError marks errors caused by bad input or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code: 1 for usage and
// validation problems, 2 for storage and everything else.
func exitCode(err error) int {
	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrNotFound):
		return 1
	}
	return 2
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// parseID parses a demand id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, usageError{fmt.Errorf("invalid demand id %q", s)}
	}
	return id, nil
}
