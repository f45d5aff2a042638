package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal/convert"
	"github.com/witanlabs/jsheet/internal/jsonio"
	"github.com/witanlabs/jsheet/internal/sheet"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the sheet as JSON, YAML, xlsx or SQLite",
	Long: `Write the sheet with formulas evaluated, column types applied and comment
columns left out.

The format comes from --format, or else from the extension of --output.
xlsx exports keep cell colors, frozen columns and the summary row.

Examples:
  jsheet export party.json -o party.xlsx
  jsheet export party.json -o party.db
  jsheet export party.json --format yaml          # writes party.yaml
  jsheet export party.json -f json -o clean.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var (
	importSheet  string
	importOutput string
	importForce  bool
)

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx>",
	Short: "Convert an xlsx sheet into a JSON array of objects",
	Long: `Read one sheet of an xlsx workbook and write it as a JSON array of objects.

The first row gives the column names; a blank header becomes the column
letter. Numbers and booleans are detected; empty cells are null.

Examples:
  jsheet import roster.xlsx
  jsheet import roster.xlsx --sheet Players -o players.json`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: json, yaml, xlsx or sqlite")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output path (default <file> with the format's extension)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "Sheet to read (default the first)")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Output path (default <file>.json)")
	importCmd.Flags().BoolVar(&importForce, "force", false, "Overwrite an existing output file")
	rootCmd.AddCommand(exportCmd, importCmd)
}

var extensions = map[convert.Format]string{
	convert.FormatJSON:   ".json",
	convert.FormatYAML:   ".yaml",
	convert.FormatXLSX:   ".xlsx",
	convert.FormatSQLite: ".db",
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func runExport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	src := args[0]

	var format convert.Format
	switch {
	case exportFormat != "":
		f, err := convert.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		format = f
	case exportOutput != "":
		f, ok := convert.FormatForPath(exportOutput)
		if !ok {
			return fmt.Errorf("cannot tell the format of %s: use --format", exportOutput)
		}
		format = f
	default:
		return fmt.Errorf("set --format or --output")
	}

	out := exportOutput
	if out == "" {
		out = replaceExt(src, extensions[format])
	}
	if abs(out) == abs(src) {
		return fmt.Errorf("refusing to export over the source file %s", src)
	}

	sess, err := openSession(src, false)
	if err != nil {
		return err
	}
	e, err := convert.FromState(sess.State)
	if err != nil {
		return err
	}
	if err := convert.Write(cmd.Context(), format, e, out); err != nil {
		return err
	}
	if jsonOutput {
		return jsonPrint(map[string]any{"path": out, "format": format, "rows": len(e.Rows)})
	}
	printf("wrote %s (%s, %s)\n", out, format, plural(len(e.Rows), "row"))
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	src := args[0]
	out := importOutput
	if out == "" {
		out = replaceExt(src, ".json")
	}
	if !importForce && fileExists(out) {
		return fmt.Errorf("%s already exists: use --force to overwrite", out)
	}

	rows, err := convert.ReadXLSX(src, importSheet)
	if err != nil {
		return err
	}
	if err := jsonio.Save(out, rows); err != nil {
		return err
	}
	columns := sheet.DeriveColumns(rows)
	if jsonOutput {
		return jsonPrint(map[string]any{"path": out, "rows": len(rows), "columns": columns})
	}
	printf("wrote %s (%s, %s)\n", out, plural(len(rows), "row"), plural(len(columns), "column"))
	return nil
}

func abs(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return p
}
