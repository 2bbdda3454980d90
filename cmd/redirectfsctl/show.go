package main

import (
	"fmt"

	"github.com/cbarrett/redirectfs/director"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [rules-file]",
	Short: "Compile a rule-set file and print the resulting rules",
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
		d, compileErrs := director.Compile(sections, resolver, osFilesystemProbe{}, director.NewOSTempDirFactory())
		if len(compileErrs) > 0 {
			for _, e := range compileErrs {
				fmt.Fprintln(cmd.OutOrStdout(), e.Error())
			}
			return fmt.Errorf("%d rule(s) failed to compile", len(compileErrs))
		}

		for _, r := range d.Rules() {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s -> %s\t(%s)\tpatterns=%v\n",
				r.Name(), r.OriginDirectory(), r.TargetDirectory(), r.RedirectMode(), r.FilePatterns())
		}
		return nil
	},
}
