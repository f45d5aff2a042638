package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal"
	"github.com/witanlabs/jsheet/internal/coerce"
	"github.com/witanlabs/jsheet/internal/session"
	"github.com/witanlabs/jsheet/internal/sheet"
)

var metaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Change column types, summaries, styles and other sheet metadata",
	Long: `Change sheet metadata. Metadata is stored in the sidecar file; changes that
affect exported values (types, comment columns) also rewrite the data file.

Commands:
  type     Set or clear a column type
  summary  Set or clear a footer summary
  style    Color one cell
  rule     Set a validation rule on a column
  cond     Manage conditional formats
  comment  Mark a column as comments (kept out of the data file)
  freeze   Freeze the first N columns
  order    Set the display column order
  rowkey   Choose the column that identifies rows across external edits

Examples:
  jsheet meta type party.json hp number
  jsheet meta summary party.json hp sum
  jsheet meta style party.json 2!hp --color "#ff0000"
  jsheet meta rule party.json hp --min 0 --max 100
  jsheet meta cond add party.json hp "< 10" --background red
  jsheet meta rowkey party.json id`,
}

var metaTypeCmd = &cobra.Command{
	Use:   "type <file> <column> <string|number|bool|null|none>",
	Short: "Set or clear a column type",
	Args:  cobra.ExactArgs(3),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		var t columnTypeValue
		if err := t.Set(args[2]); err != nil {
			return "", err
		}
		sess.State.SetColumnType(args[1], t.t)
		if t.t == "" {
			return fmt.Sprintf("cleared type of %q", args[1]), nil
		}
		return fmt.Sprintf("column %q is now %s", args[1], t.t), nil
	}),
}

var metaSummaryCmd = &cobra.Command{
	Use:   "summary <file> <column> <sum|avg|count|min|max|none>",
	Short: "Set or clear a column summary",
	Args:  cobra.ExactArgs(3),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		var k summaryKindValue
		if err := k.Set(args[2]); err != nil {
			return "", err
		}
		sess.State.SetSummaryKind(args[1], k.k)
		if text, ok := sess.State.SummaryDisplay(args[1]); ok {
			return fmt.Sprintf("%s(%s) = %s", k.k, args[1], text), nil
		}
		return fmt.Sprintf("cleared summary of %q", args[1]), nil
	}),
}

var (
	styleColor      string
	styleBackground string
	styleClear      bool
)

var metaStyleCmd = &cobra.Command{
	Use:   "style <file> <ROW!COLUMN>",
	Short: "Set or clear the colors of one cell",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		c, err := internal.ParseCell(args[1])
		if err != nil {
			return "", err
		}
		if styleClear {
			if !sess.State.ClearCellStyle(c.Row, c.Column) {
				return "", errUnchanged
			}
			return "cleared style of " + c.String(), nil
		}
		if styleColor == "" && styleBackground == "" {
			return "", fmt.Errorf("set --color and/or --background, or use --clear")
		}
		if !sess.State.SetCellStyle(c.Row, c.Column, styleColor, styleBackground) {
			return "", errUnchanged
		}
		return "styled " + c.String(), nil
	}),
}

var (
	ruleMin   string
	ruleMax   string
	ruleEnum  []string
	ruleClear bool
)

var metaRuleCmd = &cobra.Command{
	Use:   "rule <file> <column>",
	Short: "Set a validation rule (range or allowed values) on a column",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		var rule coerce.Rule
		if !ruleClear {
			var err error
			if rule.Min, err = optionalFloat("min", ruleMin); err != nil {
				return "", err
			}
			if rule.Max, err = optionalFloat("max", ruleMax); err != nil {
				return "", err
			}
			rule.EnumValues = ruleEnum
			if rule.IsEmpty() {
				return "", fmt.Errorf("set --min, --max or --enum, or use --clear")
			}
		}
		sess.State.SetValidationRule(args[1], rule)
		if ruleClear {
			return fmt.Sprintf("cleared rule of %q", args[1]), nil
		}
		return fmt.Sprintf("rule set on %q", args[1]), nil
	}),
}

var (
	condColor      string
	condBackground string
)

var metaCondCmd = &cobra.Command{
	Use:   "cond",
	Short: "List, add or remove conditional formats",
}

var metaCondListCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List conditional formats",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		sess, err := openSession(args[0], false)
		if err != nil {
			return err
		}
		formats := sess.State.Meta().ConditionalFormats
		if jsonOutput {
			return jsonPrint(formats)
		}
		if len(formats) == 0 {
			printf("no conditional formats\n")
		}
		for i, cf := range formats {
			printf("%d  %-16s %-12s %s\n", i+1, cf.Column, cf.Rule, styleText(cf.Style))
		}
		return nil
	},
}

var metaCondAddCmd = &cobra.Command{
	Use:   "add <file> <column> <rule>",
	Short: `Add a conditional format such as "< 10" or '== "n/a"'`,
	Args:  cobra.ExactArgs(3),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		if condColor == "" && condBackground == "" {
			return "", fmt.Errorf("set --color and/or --background")
		}
		cf := sheet.ConditionalFormat{
			Column: args[1],
			Rule:   args[2],
			Style:  sheet.CellStyle{Color: condColor, Background: condBackground},
		}
		if err := sess.State.AddConditionalFormat(cf); err != nil {
			return "", err
		}
		return fmt.Sprintf("added %s %s", args[1], strings.TrimSpace(args[2])), nil
	}),
}

var metaCondRemoveCmd = &cobra.Command{
	Use:   "remove <file> <n>",
	Short: "Remove the nth conditional format (see list)",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return "", fmt.Errorf("invalid index %q", args[1])
		}
		if !sess.State.RemoveConditionalFormat(n - 1) {
			return "", fmt.Errorf("no conditional format %d", n)
		}
		return fmt.Sprintf("removed conditional format %d", n), nil
	}),
}

var commentOff bool

var metaCommentCmd = &cobra.Command{
	Use:   "comment <file> <column>",
	Short: "Mark a column as comments, or unmark it with --off",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		if !sess.State.SetCommentColumn(args[1], !commentOff) {
			return "", errUnchanged
		}
		if commentOff {
			return fmt.Sprintf("%q is a data column", args[1]), nil
		}
		return fmt.Sprintf("%q is a comment column", args[1]), nil
	}),
}

var metaFreezeCmd = &cobra.Command{
	Use:   "freeze <file> <n>",
	Short: "Freeze the first n display columns (0 unfreezes)",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return "", fmt.Errorf("invalid column count %q", args[1])
		}
		sess.State.SetFrozenColumns(n)
		return fmt.Sprintf("%s frozen", plural(sess.State.Meta().FrozenColumns, "column")), nil
	}),
}

var metaOrderCmd = &cobra.Command{
	Use:   "order <file> <column>...",
	Short: "Set the display column order; unlisted columns follow",
	Args:  cobra.MinimumNArgs(1),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		sess.State.SetColumnOrder(args[1:])
		return "order: " + strings.Join(sess.State.DisplayColumns(), ", "), nil
	}),
}

var metaRowKeyCmd = &cobra.Command{
	Use:   "rowkey <file> <column|none>",
	Short: "Set the row key column",
	Args:  cobra.ExactArgs(2),
	RunE: metaRun(func(sess *session.Session, args []string) (string, error) {
		column := args[1]
		if isNone(column) {
			column = ""
		}
		if err := sess.State.SetRowKey(column); err != nil {
			return "", err
		}
		if column == "" {
			return "cleared row key", nil
		}
		return fmt.Sprintf("row key is %q", column), nil
	}),
}

var errUnchanged = errors.New("nothing changed")

// metaRun opens the file, applies fn and saves. fn returns the line to
// print on success.
func metaRun(fn func(sess *session.Session, args []string) (string, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		sess, err := openSession(args[0], false)
		if err != nil {
			return err
		}
		msg, err := fn(sess, args)
		if err != nil {
			return err
		}
		if err := sess.Save(); err != nil {
			return err
		}
		printf("%s\n", msg)
		return nil
	}
}

func optionalFloat(name, s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("--%s must be a number, got %q", name, s)
	}
	return &f, nil
}

func styleText(st sheet.CellStyle) string {
	var parts []string
	if st.Color != "" {
		parts = append(parts, "color="+st.Color)
	}
	if st.Background != "" {
		parts = append(parts, "background="+st.Background)
	}
	return strings.Join(parts, " ")
}

func init() {
	metaStyleCmd.Flags().StringVar(&styleColor, "color", "", "Text color (name, #rrggbb or ANSI number)")
	metaStyleCmd.Flags().StringVar(&styleBackground, "background", "", "Background color")
	metaStyleCmd.Flags().BoolVar(&styleClear, "clear", false, "Remove the cell style")

	metaRuleCmd.Flags().StringVar(&ruleMin, "min", "", "Smallest allowed number")
	metaRuleCmd.Flags().StringVar(&ruleMax, "max", "", "Largest allowed number")
	metaRuleCmd.Flags().StringSliceVar(&ruleEnum, "enum", nil, "Allowed values, case-insensitive (comma separated or repeated)")
	metaRuleCmd.Flags().BoolVar(&ruleClear, "clear", false, "Remove the rule")

	metaCondAddCmd.Flags().StringVar(&condColor, "color", "", "Text color when the rule matches")
	metaCondAddCmd.Flags().StringVar(&condBackground, "background", "", "Background color when the rule matches")
	metaCondCmd.AddCommand(metaCondListCmd, metaCondAddCmd, metaCondRemoveCmd)

	metaCommentCmd.Flags().BoolVar(&commentOff, "off", false, "Turn the comment flag off")

	metaCmd.AddCommand(metaTypeCmd, metaSummaryCmd, metaStyleCmd, metaRuleCmd, metaCondCmd,
		metaCommentCmd, metaFreezeCmd, metaOrderCmd, metaRowKeyCmd)
	rootCmd.AddCommand(metaCmd)
}
