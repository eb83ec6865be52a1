package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/keyurgolani/dotfiles-sub001/internal/lifecycle"
	"github.com/keyurgolani/dotfiles-sub001/internal/module"
)

var installCmd = &cobra.Command{
	Use:   "install [module...|all]",
	Short: "Install modules: packages, configuration files, assets, hooks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(args, func(r *lifecycle.Runner, mod *module.Descriptor) *lifecycle.Result {
			log.Infof("installing %s", mod.Name)
			return r.Install(mod)
		})
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [module...|all]",
	Short: "Remove module configuration files, restoring backups where present",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLifecycle(args, func(r *lifecycle.Runner, mod *module.Descriptor) *lifecycle.Result {
			log.Infof("uninstalling %s", mod.Name)
			return r.Uninstall(mod)
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [module...|all]",
	Short: "Check that module files are in place without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		total := 0
		err := runLifecycle(args, func(r *lifecycle.Runner, mod *module.Descriptor) *lifecycle.Result {
			result, problems := r.Validate(mod)
			total += problems
			return result
		})
		if total > 0 {
			log.Warnf("%d validation error(s) found", total)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(validateCmd)
}

// runLifecycle resolves the selected modules and applies op to each one in
// order. Modules run strictly sequentially; one module's failure never stops
// the others. The returned error is non-nil iff any module failed, which is
// what drives the nonzero process exit.
func runLifecycle(args []string, op func(*lifecycle.Runner, *module.Descriptor) *lifecycle.Result) error {
	runner, _, err := newRunner()
	if err != nil {
		return err
	}
	selected, err := selectModules(args)
	if err != nil {
		return err
	}

	var failed []string
	for _, mod := range selected {
		result := op(runner, mod)
		reportResult(result)
		if result.Failed() {
			failed = append(failed, mod.Name)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d module(s) failed: %v", len(failed), len(selected), failed)
	}
	return nil
}

// selectModules maps CLI args to descriptors. No args (or "all") selects
// every discovered module; names must match exactly.
func selectModules(args []string) ([]*module.Descriptor, error) {
	discovered, err := module.Discover(settings.Root)
	if err != nil {
		return nil, err
	}
	if len(discovered) == 0 {
		return nil, fmt.Errorf("no modules found under %s", settings.Root)
	}

	if len(args) == 0 || (len(args) == 1 && args[0] == "all") {
		return discovered, nil
	}

	byName := make(map[string]*module.Descriptor, len(discovered))
	for _, d := range discovered {
		byName[d.Name] = d
	}

	var selected []*module.Descriptor
	for _, name := range args {
		d, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown module %q (have: %v)", name, moduleNames(discovered))
		}
		selected = append(selected, d)
	}
	return selected, nil
}

func moduleNames(modules []*module.Descriptor) []string {
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.Name)
	}
	return names
}

// reportResult logs the per-phase outcome of one module run with enough
// context to retry manually.
func reportResult(result *lifecycle.Result) {
	for _, phase := range result.Phases {
		switch phase.Status {
		case lifecycle.PhaseFailed:
			log.Warnf("  %s/%s: %s", result.Module, phase.Phase, phase.Message)
		default:
			log.Debugf("  %s/%s: %s (%s)", result.Module, phase.Phase, phase.Status, phase.Message)
		}
	}

	switch result.Status {
	case lifecycle.StatusSuccess:
		log.Successf("%s: success", result.Module)
	case lifecycle.StatusPartial:
		log.Warnf("%s: partial (advisory failures, see above)", result.Module)
	case lifecycle.StatusSkipped:
		log.Infof("%s: skipped", result.Module)
	case lifecycle.StatusFailed:
		log.Errorf("%s: failed", result.Module)
	}
}
