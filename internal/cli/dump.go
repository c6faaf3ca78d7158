package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func (a *app) newDumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump <dir>",
		Short: "Write every table to <dir>/<table>.jsonl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			return a.withEngine(func(eng types.Engine) error {
				if err := eng.Dump(dir); err != nil {
					return sysError(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Dumped %d table(s) to %s\n", len(eng.Entities()), dir)
				return nil
			})
		},
	}
}

func (a *app) newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <dir>",
		Short: "Insert rows from <dir>/<table>.jsonl, referenced tables first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			return a.withEngine(func(eng types.Engine) error {
				if err := eng.Load(dir); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Loaded %s\n", dir)
				return nil
			})
		},
	}
}
