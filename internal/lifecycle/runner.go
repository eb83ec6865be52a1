package lifecycle

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keyurgolani/dotfiles-sub001/internal/assets"
	"github.com/keyurgolani/dotfiles-sub001/internal/logger"
	"github.com/keyurgolani/dotfiles-sub001/internal/module"
	"github.com/keyurgolani/dotfiles-sub001/internal/pkgmgr"
	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// Runner executes module lifecycles on one detected platform. Modules run
// strictly sequentially; a Runner is built once per process and reused for
// every module the CLI selects.
type Runner struct {
	Platform platform.Platform
	Manager  pkgmgr.Manager
	Log      *logger.Logger

	// Cache is the package probe cache, cleared at the start and end of
	// every lifecycle so no probe result leaks across modules or runs.
	Cache *pkgmgr.Cache

	// Home is the expansion for ~ in file targets.
	Home string

	Hooks   HookRunner
	Fetcher *assets.Fetcher

	DryRun      bool
	Interactive bool
	// AssumeYes pre-confirms destructive operations (the "ALL" mode).
	AssumeYes bool

	// Confirm asks the user a yes/no question; injectable for tests.
	// Defaults to a stdin prompt.
	Confirm func(prompt string) bool
}

// Install runs the install lifecycle for mod: pre-install hook, package
// installation, file placement (with backups), assets, post-install hook.
// A module that does not declare the current platform is a skip, not an
// error.
func (r *Runner) Install(mod *module.Descriptor) *Result {
	result := &Result{Module: mod.Name}

	if !mod.SupportsPlatform(r.Platform) {
		result.Status = StatusSkipped
		result.addPhase(PhasePreInstall, PhaseSkipped,
			fmt.Sprintf("%v: %s not in %v", ErrUnsupportedPlatform, r.Platform, mod.Platforms))
		r.Log.Warnf("skipping %s: not declared for %s", mod.Name, r.Platform)
		return result
	}

	r.clearCache()
	defer r.clearCache()

	if aborted := r.runHookPhase(result, mod, PhasePreInstall); aborted {
		return result
	}
	if aborted := r.runPackagePhase(result, mod); aborted {
		return result
	}
	if aborted := r.runFilePhase(result, mod); aborted {
		return result
	}
	r.runHookPhase(result, mod, PhasePostInstall)

	result.finalize()
	if result.Status == StatusSuccess {
		r.Log.Successf("%s installed", mod.Name)
	}
	return result
}

// Uninstall removes the files a module's descriptor declares. Backed-up
// originals are restored; targets the module did not place (content differs
// and no backup exists) are only removed after explicit confirmation.
// Uninstalling a module that was never installed reports nothing to remove.
func (r *Runner) Uninstall(mod *module.Descriptor) *Result {
	result := &Result{Module: mod.Name}

	r.clearCache()
	defer r.clearCache()

	if aborted := r.runHookPhase(result, mod, PhasePreUninstall); aborted {
		return result
	}
	r.runRemovalPhase(result, mod)
	r.runHookPhase(result, mod, PhasePostUninstall)

	result.finalize()
	return result
}

// Validate is a read-only check that every declared target exists and matches
// the module's source content. It returns the result and the number of
// validation errors found; nothing is mutated.
func (r *Runner) Validate(mod *module.Descriptor) (*Result, int) {
	result := &Result{Module: mod.Name}

	if !mod.SupportsPlatform(r.Platform) {
		result.Status = StatusSkipped
		result.addPhase("validate", PhaseSkipped, "platform not declared")
		return result, 0
	}

	problems := 0
	var notes []string
	for _, mapping := range mod.Files {
		src := filepath.Join(mod.Dir, mapping.Source)
		target := module.ExpandTarget(mapping.Target, r.Home)

		if _, err := os.Stat(target); err != nil {
			problems++
			notes = append(notes, fmt.Sprintf("%s: missing", target))
			continue
		}
		same, err := filesIdentical(src, target)
		if err != nil {
			problems++
			notes = append(notes, fmt.Sprintf("%s: unreadable", target))
			continue
		}
		if !same {
			problems++
			notes = append(notes, fmt.Sprintf("%s: content differs", target))
		}
	}

	if problems == 0 {
		result.addPhase("validate", PhaseOK, "all targets present")
	} else {
		result.Status = StatusFailed
		result.addPhase("validate", PhaseFailed,
			fmt.Sprintf("%v: %s", ErrValidationFailure, strings.Join(notes, "; ")))
	}
	result.finalize()
	return result, problems
}

// runHookPhase executes the hook for phase. A missing hook is vacuously
// successful. A failing hook aborts the module only when the descriptor marks
// the phase required; otherwise it is advisory.
func (r *Runner) runHookPhase(result *Result, mod *module.Descriptor, phase string) (aborted bool) {
	ctx := HookContext{Module: mod.Name, Platform: r.Platform, Dir: mod.Dir, DryRun: r.DryRun}
	ran, err := r.Hooks.Run(phase, ctx)
	switch {
	case err != nil:
		result.addPhase(phase, PhaseFailed, err.Error())
		if mod.HookRequired(phase) {
			result.Status = StatusFailed
			r.Log.Errorf("%s: required %s hook failed: %v", mod.Name, phase, err)
			return true
		}
		r.Log.Warnf("%s: %s hook failed (advisory): %v", mod.Name, phase, err)
	case !ran:
		result.addPhase(phase, PhaseOK, "no hook declared")
	default:
		result.addPhase(phase, PhaseOK, "hook completed")
		r.Log.Debugf("%s: %s hook completed", mod.Name, phase)
	}
	return false
}

// runPackagePhase installs the module's packages for the current platform.
// A failed required package aborts the module; optional failures are logged
// and the lifecycle continues best-effort.
func (r *Runner) runPackagePhase(result *Result, mod *module.Descriptor) (aborted bool) {
	pkgs := mod.PackagesFor(r.Platform)
	if len(pkgs) == 0 {
		result.addPhase(PhasePackages, PhaseSkipped, "no packages declared")
		return false
	}

	if !r.Manager.IsAvailable() {
		msg := fmt.Sprintf("%v: package manager %s not found", ErrDependencyMissing, r.Manager.Kind())
		if hasRequired(pkgs) {
			result.addPhase(PhasePackages, PhaseFailed, msg)
			result.Status = StatusFailed
			r.Log.Errorf("%s: %s", mod.Name, msg)
			return true
		}
		result.addPhase(PhasePackages, PhaseFailed, msg)
		r.Log.Warnf("%s: %s; continuing without packages", mod.Name, msg)
		return false
	}

	requiredByName := make(map[string]bool, len(pkgs))
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
		requiredByName[r.Manager.MapPackageName(p.Name)] = p.Required
	}

	installResult := r.Manager.Install(names)
	var failures []string
	requiredFailed := false
	installed, present := 0, 0
	for _, outcome := range installResult.Packages {
		switch outcome.Status {
		case pkgmgr.Installed:
			installed++
		case pkgmgr.AlreadyPresent:
			present++
		case pkgmgr.Failed:
			failures = append(failures, fmt.Sprintf("%s (%s)", outcome.Name, outcome.Message))
			if requiredByName[outcome.Name] {
				requiredFailed = true
			}
		}
	}

	if len(failures) > 0 {
		msg := strings.Join(failures, "; ")
		result.addPhase(PhasePackages, PhaseFailed, msg)
		if requiredFailed {
			result.Status = StatusFailed
			r.Log.Errorf("%s: required package failed: %s", mod.Name, msg)
			return true
		}
		r.Log.Warnf("%s: optional package failed: %s", mod.Name, msg)
		return false
	}

	result.addPhase(PhasePackages, PhaseOK,
		fmt.Sprintf("%d installed, %d already present", installed, present))
	return false
}

// runFilePhase copies declared files into place and installs declared assets.
// File placement is load-bearing: any copy failure fails the module. Asset
// installation is best-effort.
func (r *Runner) runFilePhase(result *Result, mod *module.Descriptor) (aborted bool) {
	var notes []string
	for _, mapping := range mod.Files {
		src := filepath.Join(mod.Dir, mapping.Source)
		target := module.ExpandTarget(mapping.Target, r.Home)

		if r.DryRun {
			r.Log.Infof("dry-run: would install %s -> %s", mapping.Source, target)
			notes = append(notes, fmt.Sprintf("%s: dry-run", target))
			continue
		}

		action, err := installFile(src, target)
		if err != nil {
			result.addPhase(PhaseFiles, PhaseFailed, err.Error())
			result.Status = StatusFailed
			r.Log.Errorf("%s: install %s -> %s: %v", mod.Name, mapping.Source, target, err)
			return true
		}
		notes = append(notes, fmt.Sprintf("%s: %s", target, action))
		r.Log.Debugf("%s: %s %s", mod.Name, action, target)
	}

	for _, asset := range mod.Assets {
		target := module.ExpandTarget(asset.Target, r.Home)
		if r.DryRun {
			r.Log.Infof("dry-run: would fetch asset %s into %s", asset.Name, target)
			continue
		}
		if err := r.Fetcher.Install(asset, target); err != nil {
			// Assets are enhancements (fonts, plugin bundles); a failed
			// download never blocks the module's own files.
			notes = append(notes, fmt.Sprintf("asset %s: %v: %v", asset.Name, ErrNetworkFailure, err))
			r.Log.Warnf("%s: asset %s failed: %v", mod.Name, asset.Name, err)
			continue
		}
		notes = append(notes, fmt.Sprintf("asset %s: installed", asset.Name))
	}

	result.addPhase(PhaseFiles, PhaseOK, strings.Join(notes, "; "))
	return false
}

// runRemovalPhase undoes file placement. For each declared target: restore
// the backup when one exists, remove the file when its content still matches
// the module source, and otherwise treat it as user-owned.
func (r *Runner) runRemovalPhase(result *Result, mod *module.Descriptor) {
	removed, restored, kept := 0, 0, 0
	existed := false

	for _, mapping := range mod.Files {
		src := filepath.Join(mod.Dir, mapping.Source)
		target := module.ExpandTarget(mapping.Target, r.Home)

		if _, err := os.Stat(target); err != nil {
			continue
		}
		existed = true

		if r.DryRun {
			r.Log.Infof("dry-run: would remove %s", target)
			continue
		}

		backup := target + ".backup"
		if _, err := os.Stat(backup); err == nil {
			if err := os.Rename(backup, target); err != nil {
				result.addPhase(PhaseFileRemoval, PhaseFailed, wrapFS("restore backup", target, err).Error())
				result.Status = StatusFailed
				return
			}
			restored++
			r.Log.Infof("%s: restored backup over %s", mod.Name, target)
			continue
		}

		same, err := filesIdentical(src, target)
		if err == nil && same {
			if err := os.Remove(target); err != nil {
				result.addPhase(PhaseFileRemoval, PhaseFailed, wrapFS("remove", target, err).Error())
				result.Status = StatusFailed
				return
			}
			removed++
			r.Log.Infof("%s: removed %s", mod.Name, target)
			continue
		}

		// Content differs and there is no backup: this file is not ours
		// unless the user says so.
		if r.confirmRemoval(target) {
			if err := os.Remove(target); err != nil {
				result.addPhase(PhaseFileRemoval, PhaseFailed, wrapFS("remove", target, err).Error())
				result.Status = StatusFailed
				return
			}
			removed++
			continue
		}
		kept++
		r.Log.Warnf("%s: keeping user-modified file %s", mod.Name, target)
	}

	switch {
	case !existed:
		result.addPhase(PhaseFileRemoval, PhaseOK, "nothing to remove")
		r.Log.Infof("%s: nothing to remove", mod.Name)
	case r.DryRun:
		result.addPhase(PhaseFileRemoval, PhaseOK, "dry-run")
	default:
		result.addPhase(PhaseFileRemoval, PhaseOK,
			fmt.Sprintf("%d removed, %d restored, %d kept", removed, restored, kept))
	}
}

// confirmRemoval decides whether a user-owned file may be deleted: yes in
// pre-confirmed mode, via prompt when interactive, never otherwise.
func (r *Runner) confirmRemoval(target string) bool {
	if r.AssumeYes {
		return true
	}
	if !r.Interactive {
		return false
	}
	confirm := r.Confirm
	if confirm == nil {
		confirm = stdinConfirm
	}
	return confirm(fmt.Sprintf("%s was modified after install; remove anyway? [y/N] ", target))
}

func stdinConfirm(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (r *Runner) clearCache() {
	if r.Cache != nil {
		r.Cache.Clear()
	}
}

func hasRequired(pkgs []module.Package) bool {
	for _, p := range pkgs {
		if p.Required {
			return true
		}
	}
	return false
}
