package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal"
	"github.com/witanlabs/jsheet/internal/value"
)

var evalCmd = &cobra.Command{
	Use:   "eval <file> <ROW!COLUMN | ROW> [formula]",
	Short: "Print a cell's value, or evaluate a formula against a row",
	Long: `Print the resolved value of one cell, or evaluate a formula in the context
of a row without saving anything.

Formulas refer to other columns of the same row by name. Operators are
+ - * / and parentheses; + joins text when either side is text.

Examples:
  jsheet eval party.json 2!total
  jsheet eval party.json 2 "hp * 2 + mp"
  jsheet eval party.json 1 '"lvl " + level'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	sess, err := openSession(args[0], false)
	if err != nil {
		return err
	}

	var v value.Value
	if len(args) == 3 {
		row, err := internal.ParseRowNumber(args[1])
		if err != nil {
			return err
		}
		if v, err = sess.State.EvalFormula(row, args[2]); err != nil {
			return err
		}
	} else {
		if !strings.Contains(args[1], "!") {
			return cmd.Usage()
		}
		c, err := internal.ParseCell(args[1])
		if err != nil {
			return err
		}
		var ok bool
		if v, ok = sess.State.CellValue(c.Row, c.Column); !ok {
			v = value.Null()
		}
	}

	if jsonOutput {
		return jsonPrint(v)
	}
	printf("%s\n", v.Display())
	return nil
}
