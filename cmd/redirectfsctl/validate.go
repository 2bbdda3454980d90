package main

import (
	"fmt"

	"github.com/cbarrett/redirectfs/director"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [rules-file]",
	Short: "Compile a rule-set file and report any diagnostics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := requireRulesFlag(args)
		if err != nil {
			return err
		}

		sections, err := loadSectionMap(path)
		if err != nil {
			return err
		}
		applyVerbosity(cmd, sections.LogLevel)

		resolver := newResolver(sections.Definitions)
		_, compileErrs := director.Compile(sections, resolver, osFilesystemProbe{}, director.NewOSTempDirFactory())
		if len(compileErrs) > 0 {
			for _, e := range compileErrs {
				fmt.Fprintln(cmd.OutOrStdout(), e.Error())
			}
			return fmt.Errorf("%d rule(s) failed to compile", len(compileErrs))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: all rules compiled successfully\n", path)
		return nil
	},
}
