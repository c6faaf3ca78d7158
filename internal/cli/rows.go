package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rowkeeper/pkg/types"
)

func (a *app) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <pk>",
		Short: "Print the row with the given primary key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, pk := args[0], args[1]
			return a.withEngine(func(eng types.Engine) error {
				row, err := eng.GetRow(table, pk)
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), row)
				}
				printRow(cmd.OutOrStdout(), row, columnsOf(eng, table))
				return nil
			})
		},
	}
}

func (a *app) newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <table> <json>",
		Short: "Insert one row or an array of rows",
		Long: `Insert takes a JSON object or an array of objects. An array is inserted as
one unit: if any row fails, none are kept.

Example:
  rowkeeper insert Venue '{"venue_id": "blue_note", "venue": "Blue Note"}'
  rowkeeper insert Genre '[{"genre": "Jazz"}, {"genre": "Blues"}]'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table := args[0]
			rows, err := types.DecodeRows([]byte(args[1]))
			if err != nil {
				return fmt.Errorf("parse rows: %w", err)
			}
			return a.withEngine(func(eng types.Engine) error {
				if len(rows) == 1 {
					err = eng.InsertRow(table, rows[0])
				} else {
					err = eng.InsertRows(table, rows)
				}
				if err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"table": table, "inserted": len(rows)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Inserted %d row(s) into %s\n", len(rows), table)
				return nil
			})
		},
	}
}

func (a *app) newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <table> <pk> <json>",
		Short: "Set non-key columns of a row",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, pk := args[0], args[1]
			row, err := types.DecodeRow([]byte(args[2]))
			if err != nil {
				return fmt.Errorf("parse row: %w", err)
			}
			return a.withEngine(func(eng types.Engine) error {
				if err := eng.UpdateRow(table, pk, row); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"table": table, "updated": pk})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %s/%s\n", table, pk)
				return nil
			})
		},
	}
}

func (a *app) newDeleteCmd() *cobra.Command {
	var cascade bool
	cmd := &cobra.Command{
		Use:   "delete <table> <pk>",
		Short: "Delete a row, optionally with everything referencing it",
		Long: `Delete removes one row. A row that other rows still reference is refused
and the referencing rows are listed; --cascade deletes them too, children
first, and prints every deleted row.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, pk := args[0], args[1]
			return a.withEngine(func(eng types.Engine) error {
				var rec types.DeletionRecord
				if cascade {
					var err error
					if rec, err = eng.CascadingDelete(table, pk); err != nil {
						return err
					}
				} else {
					row, err := eng.DeleteRow(table, pk)
					if err != nil {
						return err
					}
					rec = types.DeletionRecord{{TableName: table, Row: row}}
				}

				out := cmd.OutOrStdout()
				if a.flags.jsonMode {
					if rec == nil {
						rec = types.DeletionRecord{}
					}
					return printJSON(out, rec)
				}
				if len(rec) == 0 {
					fmt.Fprintf(out, "No row %s/%s\n", table, pk)
					return nil
				}
				for _, d := range rec {
					ent := eng.Entities()[d.TableName]
					fmt.Fprintf(out, "Deleted %s/%s\n", d.TableName, types.FormatValue(d.Row[ent.PrimaryKey]))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&cascade, "cascade", false, "also delete every row that references this one")
	return cmd
}

func (a *app) newRenameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <table> <old-pk> <new-pk>",
		Short: "Change a row's primary key and carry its references along",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, oldPK, newPK := args[0], args[1], args[2]
			return a.withEngine(func(eng types.Engine) error {
				if err := eng.RenamePrimaryKey(table, oldPK, newPK); err != nil {
					return err
				}
				if a.flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]any{"table": table, "from": oldPK, "to": types.FormatKey(newPK)})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s/%s to %s\n", table, oldPK, types.FormatKey(newPK))
				return nil
			})
		},
	}
}
