package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/atikulmunna/logtally/internal/config"
)

// newRootCmd builds the command tree around its own viper instance.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "logtally",
		Short: "logtally — access-log validator and running tally",
		Long: `logtally reads access-log lines from stdin, from followed files or from a
generated batch, validates each one against the request-line grammar and
prints a running summary of bytes served and status codes every 10 lines and
when the input ends or is interrupted.

A first stdin line of the form "__args__ <mode>..." reconfigures the run.
Modes: help (-h), slowmo (-s), taint (-t), verbose (-v), list (-l).

Examples:
  logtally < access.log
  logtally --taint --list
  logtally --follow "/var/log/nginx/*.log" --from-start
  printf '__args__ -v list\n' | logtally`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTally(cmd, config.Load(v))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.logtally.yaml)")

	f := cmd.Flags()
	f.BoolP("slowmo", "s", false, "pause a random sub-second delay before each line")
	f.BoolP("taint", "t", false, "randomly corrupt lines before validation (implies --verbose)")
	f.BoolP("verbose", "v", false, "trace every line and break down valid/invalid counts")
	f.BoolP("list", "L", false, "process a generated batch instead of stdin")
	f.Int("batch-size", 0, "number of generated lines in list mode")
	f.Int("cadence", 0, "lines between interim summaries")
	f.StringSliceP("follow", "f", nil, "follow files matching these glob patterns instead of stdin")
	f.Bool("from-start", false, "with --follow, read existing content before new lines")
	f.StringP("output", "o", "", "output format: text, json")
	f.Bool("color", false, "colorize text output")
	f.String("log-level", "", "diagnostics level on stderr: debug, info, warn, error")

	config.SetDefaults(v)
	f.VisitAll(func(fl *pflag.Flag) {
		cobra.CheckErr(v.BindPFlag(strings.ReplaceAll(fl.Name, "-", "_"), fl))
	})

	return cmd
}

func initConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(".logtally")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("logtally")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
