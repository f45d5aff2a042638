package cmd

import (
	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal"
	"github.com/witanlabs/jsheet/internal/table"
	"github.com/witanlabs/jsheet/internal/value"
)

var (
	editCreate bool
	editDryRun bool
)

var editCmd = &cobra.Command{
	Use:   "edit <file> ROW!COLUMN=VALUE ...",
	Short: "Set cell values and formulas",
	Long: `Set cell values or formulas and save the file.

Each edit is ROW!COLUMN=VALUE. Use a double = for a formula. Rows start at 1.
Values are read as JSON-ish input: numbers, true/false, null and quoted
strings keep their type, anything else is text. Typed columns convert the
value or reject the edit.

All edits apply as one undo step. Edits that fail are reported and skipped;
the rest are still saved, and the exit code is 2.

Examples:
  jsheet edit party.json "1!hp=42"
  jsheet edit party.json "1!hp=42" "2!name=bob"
  jsheet edit party.json "3!total==hp + mp"       # formula (double =)
  jsheet edit party.json "1!alive=true"
  jsheet edit party.json "1!note=null"              # null (not allowed in number or bool columns)
  jsheet edit party.json "1!code='007'"             # force text`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEdit,
}

func init() {
	editCmd.Flags().BoolVar(&editCreate, "create", false, "Create the file if it does not exist")
	editCmd.Flags().BoolVar(&editDryRun, "dry-run", false, "Report what would change without saving")
	rootCmd.AddCommand(editCmd)
}

// parseEdits converts command-line edit specs into table edits.
func parseEdits(specs []string) ([]table.CellEdit, error) {
	edits := make([]table.CellEdit, 0, len(specs))
	for _, spec := range specs {
		e, err := internal.ParseEdit(spec)
		if err != nil {
			return nil, err
		}
		if e.Formula {
			edits = append(edits, table.FormulaEdit(e.Row, e.Column, e.Text))
			continue
		}
		edits = append(edits, table.ValueEdit(e.Row, e.Column, value.ParseInput(e.Text)))
	}
	return edits, nil
}

type editReport struct {
	Changed int          `json:"changed"`
	Skipped []skipReport `json:"skipped,omitempty"`
	Saved   bool         `json:"saved"`
}

type skipReport struct {
	Edit   string `json:"edit"`
	Reason string `json:"reason"`
}

func runEdit(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	edits, err := parseEdits(args[1:])
	if err != nil {
		return err
	}
	sess, err := openSession(args[0], editCreate)
	if err != nil {
		return err
	}

	// Rows may be addressed one past the end to append.
	for _, e := range edits {
		if e.Row == sess.State.RowCount() {
			sess.State.AddRow()
		}
	}

	changed, skipped := sess.State.ApplyCellEdits(edits)
	report := editReport{Changed: changed}
	failed := 0
	for _, sk := range skipped {
		reason := "unchanged"
		if sk.Err != nil {
			reason = sk.Err.Error()
			failed++
		}
		report.Skipped = append(report.Skipped, skipReport{Edit: args[1+sk.Index], Reason: reason})
	}

	if changed > 0 && !editDryRun {
		if err := sess.Save(); err != nil {
			return err
		}
		report.Saved = true
	}

	if jsonOutput {
		if err := jsonPrint(report); err != nil {
			return err
		}
	} else {
		for _, sk := range report.Skipped {
			printf("skipped %s: %s\n", sk.Edit, sk.Reason)
		}
		verb := "saved"
		if !report.Saved {
			verb = "not saved"
		}
		printf("%s, %s\n", plural(changed, "cell")+" changed", verb)
	}
	if failed > 0 {
		return &ExitError{Code: 2}
	}
	return nil
}
