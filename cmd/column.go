package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	columnType    columnTypeValue
	columnSummary summaryKindValue
)

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Add or delete columns",
	Long: `Add or delete columns.

Adding a column writes null into every row. Deleting a column removes it from
every row along with its type, summary, rule, formulas and styles.

Examples:
  jsheet column add party.json level --type number --summary max
  jsheet column delete party.json notes`,
}

var columnAddCmd = &cobra.Command{
	Use:   "add <file> <name>",
	Short: "Add a column",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnAdd,
}

var columnDeleteCmd = &cobra.Command{
	Use:   "delete <file> <name>",
	Short: "Delete a column",
	Args:  cobra.ExactArgs(2),
	RunE:  runColumnDelete,
}

func init() {
	columnAddCmd.Flags().Var(&columnType, "type", "Column type: string, number, bool or null")
	columnAddCmd.Flags().Var(&columnSummary, "summary", "Footer summary: sum, avg, count, min or max")
	columnCmd.AddCommand(columnAddCmd, columnDeleteCmd)
	rootCmd.AddCommand(columnCmd)
}

func runColumnAdd(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	name := args[1]
	sess, err := openSession(args[0], true)
	if err != nil {
		return err
	}
	if !sess.State.AddColumn(name) {
		return fmt.Errorf("column %q already exists or is not a valid name", name)
	}
	if columnType.set {
		sess.State.SetColumnType(name, columnType.t)
	}
	if columnSummary.set {
		sess.State.SetSummaryKind(name, columnSummary.k)
	}
	if err := sess.Save(); err != nil {
		return err
	}
	printf("added column %q\n", name)
	return nil
}

func runColumnDelete(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	name := args[1]
	sess, err := openSession(args[0], false)
	if err != nil {
		return err
	}
	if !sess.State.DeleteColumn(name) {
		return fmt.Errorf("no column %q", name)
	}
	if err := sess.Save(); err != nil {
		return err
	}
	printf("deleted column %q\n", name)
	return nil
}
