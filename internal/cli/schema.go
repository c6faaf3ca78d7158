package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

// withEngine opens the engine, runs fn and closes it.
func (a *app) withEngine(fn func(eng types.Engine) error) error {
	eng, err := a.openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()
	return fn(eng)
}

func (a *app) newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables with their primary key and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(eng types.Engine) error {
				ents := eng.Entities()
				names := make([]string, 0, len(ents))
				for n := range ents {
					names = append(names, n)
				}
				sort.Strings(names)

				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					list := make([]types.Entity, 0, len(names))
					for _, n := range names {
						list = append(list, ents[n])
					}
					return printJSON(out, list)
				}
				for _, n := range names {
					e := ents[n]
					fmt.Fprintf(out, "%s (pk %s): %d columns\n", n, e.PrimaryKey, len(e.Columns))
				}
				return nil
			})
		},
	}
}

func (a *app) newRelationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relations",
		Short: "List foreign keys with their allowed values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(eng types.Engine) error {
				rels, err := eng.Relations()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return printJSON(out, rels)
				}
				for _, r := range rels {
					fmt.Fprintf(out, "%s.%s -> %s.%s (%d values)\n",
						r.LeftTable, r.LeftKey, r.RightTable, r.RightKey, len(r.AllowedValues))
				}
				return nil
			})
		},
	}
}

func (a *app) newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order",
		Short: "List tables with referenced tables first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(eng types.Engine) error {
				order, err := eng.SortedTables()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					return printJSON(out, order)
				}
				for _, t := range order {
					fmt.Fprintln(out, t)
				}
				return nil
			})
		},
	}
}

func (a *app) newERDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erd",
		Short: "Print the relation graph in Graphviz DOT format",
		Long: `Erd prints one node per table and one edge per foreign key.

Example:
  rowkeeper erd | dot -Tsvg > erd.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(func(eng types.Engine) error {
				return eng.WriteERD(cmd.OutOrStdout())
			})
		},
	}
}
