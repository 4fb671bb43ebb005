package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AntonStoeckl/library-circulation-go/app"
	"github.com/AntonStoeckl/library-circulation-go/config"
	"github.com/AntonStoeckl/library-circulation-go/library"
)

const (
	defaultConfigFile = "librarian.yaml"
	dateLayout        = "2006-01-02"
)

// Exit codes, one per error class, so scripts can react without parsing messages.
const (
	exitFailure      = 1
	exitInvalidInput = 2
	exitNotFound     = 3
	exitRejected     = 4
	exitUnavailable  = 5
)

// cli carries the persistent flags and the library opened for the running command.
type cli struct {
	configPath string
	envFile    string
	options    []app.Option

	root *cobra.Command
	lib  *app.Library
}

func newCLI(options ...app.Option) *cli {
	c := &cli{options: options}

	root := &cobra.Command{
		Use:   "librarian",
		Short: "Library circulation: catalog, customers, loans, and fines",
		Long: `librarian manages the book catalog, the registered customers, and the loan ledger.

Books are issued to and returned by customers; every change is committed to
storage before it becomes visible. Storage is JSON files, PostgreSQL, or SQLite,
selected in the config file.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.open,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultConfigFile, "path to the YAML config file")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "path to a .env file (default .env)")

	root.AddCommand(
		c.bookCmd(),
		c.customerCmd(),
		c.loanCmd(),
		c.finesCmd(),
		c.consistencyCmd(),
	)

	c.root = root

	return c
}

// execute runs the command line and closes the library afterwards, also when the command failed.
func (c *cli) execute(ctx context.Context) error {
	err := c.root.ExecuteContext(ctx)

	return errors.Join(err, c.close(ctx))
}

func (c *cli) open(cmd *cobra.Command, _ []string) error {
	var envFiles []string
	if c.envFile != "" {
		envFiles = append(envFiles, c.envFile)
	}

	cfg, err := config.Load(c.configPath, envFiles...)
	if err != nil {
		return err
	}

	lib, err := app.Open(cmd.Context(), cfg, c.options...)
	if err != nil {
		return fmt.Errorf("failed to open library: %w", err)
	}

	c.lib = lib

	return nil
}

func (c *cli) close(ctx context.Context) error {
	if c.lib == nil {
		return nil
	}

	err := c.lib.Close(ctx)
	c.lib = nil

	return err
}

func parseCustomerID(raw string) (library.CustomerID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Join(library.ErrInvalidInput, fmt.Errorf("customer id %q must be a positive integer", raw))
	}

	return id, nil
}

// parseDay reads a --today flag. An empty value means the current day.
func parseDay(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}

	day, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, errors.Join(library.ErrInvalidInput, err)
	}

	return day, nil
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, library.ErrInvalidInput):
		return exitInvalidInput
	case errors.Is(err, library.ErrNotFound):
		return exitNotFound
	case errors.Is(err, library.ErrConflict), errors.Is(err, library.ErrForbidden), errors.Is(err, library.ErrDuplicateKey):
		return exitRejected
	case errors.Is(err, library.ErrUpstreamUnavailable):
		return exitUnavailable
	default:
		return exitFailure
	}
}
