package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tgienger/worksphere/internal/config"
	"github.com/tgienger/worksphere/internal/logging"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app carries what every subcommand needs after the config is loaded
type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
	logger  *logging.Logger
}

func main() {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "worksphere",
		Short:         "Worksphere - collaborative task tracker",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Close()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/worksphere/config.yaml)")
	flags.String("api", "", "task API base URL")
	flags.String("user", "", "caller user id")
	flags.String("lang", "", "message language (vi or en)")
	flags.String("log-level", "", "log level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(a.serveCmd())
	rootCmd.AddCommand(a.autolockCmd())
	rootCmd.AddCommand(a.tuiCmd())
	rootCmd.AddCommand(a.taskCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// flagKeys maps config keys to the flags that override them
var flagKeys = map[string]string{
	"api.base_url":             "api",
	"api.user_id":              "user",
	"ui.language":              "lang",
	"ui.project_id":            "project",
	"logging.level":            "log-level",
	"server.addr":              "addr",
	"server.db_path":           "db",
	"server.seed":              "seed",
	"server.autolock_schedule": "autolock",
}

// load reads config from file, env and flags, validates it and opens the log
func (a *app) load(cmd *cobra.Command) error {
	a.v = config.NewViper(a.cfgFile)

	for key, flag := range flagKeys {
		// a command only binds the flags it defines
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := a.v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}
