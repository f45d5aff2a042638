package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal"
)

var rowAt string

var rowCmd = &cobra.Command{
	Use:   "row",
	Short: "Add or delete rows",
	Long: `Add or delete rows. Rows start at 1. Formulas, styles and other per-row
metadata stay with their row.

Examples:
  jsheet row add party.json
  jsheet row add party.json --at 2
  jsheet row delete party.json 3`,
}

var rowAddCmd = &cobra.Command{
	Use:   "add <file>",
	Short: "Append an empty row, or insert one with --at",
	Args:  cobra.ExactArgs(1),
	RunE:  runRowAdd,
}

var rowDeleteCmd = &cobra.Command{
	Use:   "delete <file> <row>",
	Short: "Delete a row",
	Args:  cobra.ExactArgs(2),
	RunE:  runRowDelete,
}

func init() {
	rowAddCmd.Flags().StringVar(&rowAt, "at", "", "Insert before this row instead of appending")
	rowCmd.AddCommand(rowAddCmd, rowDeleteCmd)
	rootCmd.AddCommand(rowCmd)
}

func runRowAdd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	sess, err := openSession(args[0], true)
	if err != nil {
		return err
	}
	var row int
	if rowAt == "" {
		row = sess.State.AddRow()
	} else {
		if row, err = internal.ParseRowNumber(rowAt); err != nil {
			return err
		}
		if !sess.State.InsertRow(row) {
			return fmt.Errorf("row %d out of range, sheet has %s", row+1, plural(sess.State.RowCount(), "row"))
		}
	}
	if err := sess.Save(); err != nil {
		return err
	}
	if jsonOutput {
		return jsonPrint(map[string]int{"row": row + 1})
	}
	printf("added row %d\n", row+1)
	return nil
}

func runRowDelete(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	row, err := internal.ParseRowNumber(args[1])
	if err != nil {
		return err
	}
	sess, err := openSession(args[0], false)
	if err != nil {
		return err
	}
	if !sess.State.DeleteRow(row) {
		return fmt.Errorf("row %d out of range, sheet has %s", row+1, plural(sess.State.RowCount(), "row"))
	}
	if err := sess.Save(); err != nil {
		return err
	}
	printf("deleted row %d\n", row+1)
	return nil
}
