package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowkeeper/pkg/sqlite"
)

type initFlags struct {
	schema string
	sample bool
	force  bool
}

func (a *app) newInitCmd() *cobra.Command {
	var f initFlags
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and database",
		Long: `Init writes a default config.yaml if none exists and opens the database,
creating it if needed. With --schema or --sample the DDL is executed.

Example:
  rowkeeper init --sample
  rowkeeper init --schema music.sql --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInit(cmd, f)
		},
	}
	cmd.Flags().StringVar(&f.schema, "schema", "", "SQL script to execute")
	cmd.Flags().BoolVar(&f.sample, "sample", false, "create the bundled music-log schema")
	cmd.Flags().BoolVar(&f.force, "force", false, "delete the existing database first")
	return cmd
}

func (a *app) runInit(cmd *cobra.Command, f initFlags) error {
	if f.schema != "" && f.sample {
		return errors.New("--schema and --sample are mutually exclusive")
	}

	cfg, err := a.engineConfig()
	if err != nil {
		return err
	}
	if err := writeConfigIfMissing(a.configDir, a.flags.dataDir); err != nil {
		return sysError(err)
	}

	var script string
	switch {
	case f.schema != "":
		data, err := os.ReadFile(f.schema)
		if err != nil {
			return fmt.Errorf("read schema: %w", err)
		}
		script = string(data)
	case f.sample:
		script = sqlite.SampleSchema()
	}

	if f.force {
		if err := os.Remove(cfg.DBPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return sysError(fmt.Errorf("remove database: %w", err))
		}
	}

	eng, err := a.openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if script != "" {
		if err := eng.InitSchema(script); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if a.flags.jsonMode {
		return printJSON(out, map[string]any{
			"config": a.configDir,
			"db":     cfg.DBPath(),
			"tables": len(eng.Entities()),
		})
	}
	fmt.Fprintln(out, "rowkeeper initialized")
	fmt.Fprintln(out, "  config:", a.configDir)
	fmt.Fprintln(out, "  db:    ", cfg.DBPath())
	fmt.Fprintln(out, "  tables:", len(eng.Entities()))
	return nil
}
