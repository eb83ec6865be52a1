package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keyurgolani/dotfiles-sub001/internal/module"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered modules and whether they apply to this platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, detected, err := newRunner()
		if err != nil {
			return err
		}
		discovered, err := module.Discover(settings.Root)
		if err != nil {
			return err
		}
		if len(discovered) == 0 {
			log.Warnf("no modules found under %s", settings.Root)
			return nil
		}

		for _, mod := range discovered {
			marker := " "
			if mod.SupportsPlatform(detected) {
				marker = "*"
			}
			platforms := make([]string, 0, len(mod.Platforms))
			for _, p := range mod.Platforms {
				platforms = append(platforms, string(p))
			}
			fmt.Printf("%s %-16s %s\n", marker, mod.Name, strings.Join(platforms, ", "))
		}
		fmt.Printf("\n* applies to detected platform (%s)\n", detected)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
