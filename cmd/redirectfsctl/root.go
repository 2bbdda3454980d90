// Command redirectfsctl loads a declarative rule-set file, compiles it
// through the Rule Compiler, and reports the result: validate checks a
// file for compile errors, show prints the rules a valid file produced.
// Neither command mounts anything; the interception mechanism itself is
// out of this module's scope (see the core packages' doc comments).
package main

import (
	"fmt"
	"os"

	"github.com/cbarrett/redirectfs/internal/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "redirectfsctl",
	Short: "Compile and inspect redirectfs rule-set files",
	Long: `redirectfsctl loads a declarative rule-set file, resolves its
%DOMAIN::NAME% references, and runs it through the same Rule Compiler the
redirection core uses, without ever touching a live mount.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "rules", "", "Path to the rule-set YAML file (required)")
	rootCmd.PersistentFlags().IntVar(&verbosity, "verbosity", 2, "Log verbosity ordinal (0=error .. 3=debug); overrides the rule file's log-level")

	_ = viper.BindPFlag("rules", rootCmd.PersistentFlags().Lookup("rules"))
	_ = viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))

	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(showCmd)
}

// requireRulesFlag resolves the --rules flag for a subcommand, falling back
// to a positional argument for convenience (redirectfsctl validate
// rules.yaml works the same as redirectfsctl validate --rules rules.yaml).
func requireRulesFlag(args []string) (string, error) {
	path := viper.GetString("rules")
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return "", fmt.Errorf("no rule-set file given: pass --rules or a positional argument")
	}
	return path, nil
}

// applyVerbosity sets the logger level. An explicit --verbosity flag wins;
// otherwise the rule file's own log-level applies, falling back to the
// flag's default when the file doesn't set one either.
func applyVerbosity(cmd *cobra.Command, fileLogLevel int) {
	if cmd.Flags().Changed("verbosity") {
		telemetry.SetLevelFromOrdinal(viper.GetInt("verbosity"))
		return
	}
	if fileLogLevel != 0 {
		telemetry.SetLevelFromOrdinal(fileLogLevel)
		return
	}
	telemetry.SetLevelFromOrdinal(viper.GetInt("verbosity"))
}
