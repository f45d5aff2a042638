package cmd

import (
	"github.com/spf13/cobra"
	"github.com/witanlabs/jsheet/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change defaults",
	Long: `Show or change the defaults stored in the config file.

Keys:
  addr              Address for serve and call (default 127.0.0.1:7431)
  autosave          Cron schedule for serve autosave (default off)
  watch             Reload on external edits while serving (true/false)
  max_column_width  Widest column show will print (default 24)

The file lives in $JSHEET_CONFIG_DIR, else $XDG_CONFIG_HOME/jsheet, else
~/.config/jsheet.

Examples:
  jsheet config show
  jsheet config set addr :8080
  jsheet config reset`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg := loadConfig()
		if jsonOutput {
			return jsonPrint(cfg)
		}
		if p, err := config.Path(); err == nil {
			printf("# %s\n", p)
		}
		for _, k := range config.Keys {
			v, _ := cfg.Get(k)
			printf("%-17s %s\n", k, v)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Store one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		if err := config.Delete(); err != nil {
			return err
		}
		printf("config reset\n")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configResetCmd)
	rootCmd.AddCommand(configCmd)
}
