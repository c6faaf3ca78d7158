package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

// resolvedConfig is the JSON form of the config command.
type resolvedConfig struct {
	ConfigFile string `json:"config_file"`
	DataDir    string `json:"data_dir"`
	DBPath     string `json:"db_path"`
	Me         string `json:"me,omitempty"`
	PersonDir  string `json:"person_dir,omitempty"`
	ReadOnly   bool   `json:"read_only"`
}

func (a *app) newConfigCmd() *cobra.Command {
	var person string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long: "Prints the configuration rowkeeper would open the database with.\n" +
			"--person resolves that person's data directory; without it the\n" +
			"configured \"me\" identity is used.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.engineConfig()
			if err != nil {
				return err
			}
			out := resolvedConfig{
				ConfigFile: filepath.Join(a.configDir, configFileExt),
				DataDir:    cfg.DataDir,
				DBPath:     cfg.DBPath(),
				Me:         cfg.Me,
				ReadOnly:   cfg.ReadOnly,
			}
			if person != "" || cfg.Me != "" {
				out.PersonDir = cfg.PersonDir(person)
			}

			w := cmd.OutOrStdout()
			if a.flags.jsonMode {
				return printJSON(w, out)
			}
			fmt.Fprintf(w, "config: %s\n", out.ConfigFile)
			fmt.Fprintf(w, "data_dir: %s\n", out.DataDir)
			fmt.Fprintf(w, "db: %s\n", out.DBPath)
			if out.Me != "" {
				fmt.Fprintf(w, "me: %s\n", out.Me)
			}
			if out.PersonDir != "" {
				fmt.Fprintf(w, "person_dir: %s\n", out.PersonDir)
			}
			fmt.Fprintf(w, "read_only: %t\n", out.ReadOnly)
			return nil
		},
	}
	cmd.Flags().StringVar(&person, "person", "", "person id whose data directory to show (default: me)")
	return cmd
}
