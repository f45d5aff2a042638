package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/config"
	"github.com/witanlabs/jsheet/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:   "jsheet",
	Short: "jsheet: edit JSON arrays of objects as a spreadsheet",
	Long: `Edit a JSON file holding an array of objects as a spreadsheet.

Formulas, column types, styles and summaries live in a sidecar file next to
the data (<file>.jsheet). The data file itself stays plain JSON.

Rows are numbered from 1 on the command line.

Examples:
  jsheet show party.json
  jsheet edit party.json "2!hp=40" "2!max==hp * 2"
  jsheet meta type party.json hp number
  jsheet export party.json -o party.xlsx
  jsheet serve party.json --watch`,
	Version:       Version,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output raw JSON instead of human-formatted summaries")
}

// loadConfig returns the user config with environment overrides and
// defaults applied. A broken config file is reported and ignored.
func loadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		warnf("ignoring config: %v", err)
		cfg = config.Config{}
	}
	return cfg.Resolved()
}

// openSession opens path, or starts an empty sheet when create is set and
// the file does not exist. A damaged sidecar is reported, not fatal.
func openSession(path string, create bool) (*session.Session, error) {
	var (
		sess *session.Session
		err  error
	)
	if create {
		sess, err = session.OpenOrCreate(path)
	} else {
		sess, err = session.Open(path)
	}
	if err != nil {
		return nil, err
	}
	if sess.SidecarErr != nil {
		warnf("metadata not loaded: %v", sess.SidecarErr)
	}
	return sess, nil
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}

func Execute() error {
	return rootCmd.Execute()
}
