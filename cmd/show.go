package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/internal/render"
	"github.com/witanlabs/jsheet/internal/server"
	"github.com/witanlabs/jsheet/internal/table"
)

var (
	showFilter  string
	showSearch  string
	showSort    string
	showOrder   sortOrderValue
	showColumns []string
	showWidth   int
	showColor   string
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the sheet as a table",
	Long: `Print the sheet as a table with computed formula values and summaries.

Filter, search and sort apply to this view only; nothing is written.

Examples:
  jsheet show party.json
  jsheet show party.json --filter class=wizard
  jsheet show party.json --filter dragon         # any column
  jsheet show party.json --sort hp --order desc
  jsheet show party.json --search bob --color always
  jsheet --json show party.json                  # full snapshot`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showFilter, "filter", "", "Filter rows: COLUMN=TEXT, or TEXT to match any column")
	showCmd.Flags().StringVar(&showSearch, "search", "", "Highlight cells containing TEXT")
	showCmd.Flags().StringVar(&showSort, "sort", "", "Sort rows by COLUMN")
	showCmd.Flags().Var(&showOrder, "order", "Sort order: asc or desc")
	showCmd.Flags().StringSliceVarP(&showColumns, "columns", "c", nil, "Columns to show, in order (default all)")
	showCmd.Flags().IntVar(&showWidth, "width", 0, "Maximum column width (default from config)")
	showCmd.Flags().StringVar(&showColor, "color", "auto", "Color output: auto, always or never")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	sess, err := openSession(args[0], false)
	if err != nil {
		return err
	}
	st := sess.State

	if showFilter != "" {
		column, query := "", showFilter
		if c, q, ok := strings.Cut(showFilter, "="); ok {
			column, query = c, q
		}
		st.SetFilter(column, query)
	}
	if showSearch != "" {
		st.SetSearch(showSearch)
	}
	if showSort != "" {
		order := table.Asc
		if showOrder.desc {
			order = table.Desc
		}
		st.SortBy(showSort, order)
	}

	if jsonOutput {
		return jsonPrint(server.BuildSnapshot(sess.Path, st, sess.SidecarErr))
	}

	color, err := resolveColor(showColor)
	if err != nil {
		return err
	}
	width := showWidth
	if width <= 0 {
		width = loadConfig().MaxColumnWidth
	}
	if st.RowCount() == 0 && len(st.DisplayColumns()) == 0 {
		printf("(empty sheet)\n")
		return nil
	}
	if color {
		// lipgloss strips styles when stdout is not a terminal
		lipgloss.SetColorProfile(termenv.ANSI256)
	}
	printf("%s\n", render.Grid(st, render.Options{MaxColumnWidth: width, Color: color, Columns: showColumns}))
	if visible := len(st.VisibleRows()); visible != st.RowCount() {
		printf("%d of %s shown\n", visible, plural(st.RowCount(), "row"))
	}
	return nil
}

func resolveColor(mode string) (bool, error) {
	switch strings.ToLower(mode) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		return isTerminal(os.Stdout), nil
	}
	return false, fmt.Errorf("--color must be auto, always or never, got %q", mode)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
