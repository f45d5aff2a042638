package cmd

import (
	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal/table"
)

var sortOrder sortOrderValue

var sortCmd = &cobra.Command{
	Use:   "sort <file> <column>",
	Short: "Reorder the rows of the file by a column",
	Long: `Sort rows by a column and save the new order.

Nulls sort first, then booleans, numbers, strings, arrays and objects. Text
compares case-insensitively. Equal rows keep their relative order. Formulas
and styles move with their rows.

Examples:
  jsheet sort party.json name
  jsheet sort party.json hp --order desc`,
	Args: cobra.ExactArgs(2),
	RunE: runSort,
}

func init() {
	sortCmd.Flags().Var(&sortOrder, "order", "Sort order: asc or desc")
	rootCmd.AddCommand(sortCmd)
}

func runSort(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	sess, err := openSession(args[0], false)
	if err != nil {
		return err
	}
	order := table.Asc
	if sortOrder.desc {
		order = table.Desc
	}
	if !sess.State.SortBy(args[1], order) {
		printf("already sorted by %s %s\n", args[1], order)
		return nil
	}
	if err := sess.Save(); err != nil {
		return err
	}
	printf("sorted %s by %s %s\n", plural(sess.State.RowCount(), "row"), args[1], order)
	return nil
}
