// Package cli implements the rowkeeper command-line interface.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/rowkeeper/internal/paths"
	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
	dryRun    bool
}

// app carries the state shared by the subcommands of one root command.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
	logger    *zap.Logger
}

// NewRootCmd creates the top-level "rowkeeper" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "rowkeeper",
		Short: "Referential-integrity tooling for SQLite databases",
		Long: "Rowkeeper inspects a SQLite schema and edits rows with structured\n" +
			"constraint reports, cascading deletes and primary-key renames.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: ./.rowkeeper or the platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: ./.rowkeeper-db)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&a.flags.dryRun, "dry-run", false, "run writes without committing them")

	root.AddCommand(
		newVersionCmd(),
		a.newInitCmd(),
		a.newTablesCmd(),
		a.newRelationsCmd(),
		a.newOrderCmd(),
		a.newERDCmd(),
		a.newGetCmd(),
		a.newInsertCmd(),
		a.newUpdateCmd(),
		a.newDeleteCmd(),
		a.newRenameCmd(),
		a.newDumpCmd(),
		a.newLoadCmd(),
		a.newConfigCmd(),
	)
	return root
}

// setup resolves the config directory, reads config.yaml and builds the
// logger before any subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	dir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(fmt.Errorf("resolve config dir: %w", err))
	}
	a.configDir = dir

	v, err := loadConfig(dir)
	if err != nil {
		return sysError(err)
	}
	a.v = v

	level := a.flags.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	logger, err := newLogger(level)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "rowkeeper: load .env:", err)
	}

	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "rowkeeper:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// systemError marks failures of the environment rather than of the request.
type systemError struct{ err error }

func (e *systemError) Error() string { return e.err.Error() }
func (e *systemError) Unwrap() error { return e.err }

func sysError(err error) error {
	if err == nil {
		return nil
	}
	return &systemError{err: err}
}

// exitCode maps an error to the process exit status. Missing rows, unknown
// names and constraint violations are the caller's fault; store and schema
// failures are not.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var (
		se     *systemError
		dbErr  *types.DBError
		schErr *types.SchemaError
	)
	switch {
	case errors.As(err, &se), errors.As(err, &dbErr), errors.As(err, &schErr):
		return exitSysError
	default:
		return exitUserError
	}
}
