package lifecycle

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// HookContext is what a hook gets to know about the run it participates in.
type HookContext struct {
	Module   string
	Platform platform.Platform
	// Dir is the module directory, the working directory for script hooks.
	Dir    string
	DryRun bool
}

// HookRunner executes the hook for a named phase, if one exists. ran is false
// when the module declares no hook for that phase; a missing hook is vacuously
// successful, hooks are optional enhancements rather than required contracts.
type HookRunner interface {
	Run(phase string, ctx HookContext) (ran bool, err error)
}

// ScriptHooks is the exec-backed HookRunner: a hook for phase P is an
// executable at <moduleDir>/hooks/P or <moduleDir>/hooks/P.sh, invoked with
// the module name and detected platform in its environment.
type ScriptHooks struct {
	// Exec runs a script; injectable for tests. Defaults to exec.Command
	// with inherited stdio-less combined output.
	Exec func(script string, env []string, dir string) error
}

func (s *ScriptHooks) Run(phase string, ctx HookContext) (bool, error) {
	script := findHookScript(ctx.Dir, phase)
	if script == "" {
		return false, nil
	}
	if ctx.DryRun {
		return true, nil
	}

	env := append(os.Environ(),
		"DOTFILES_MODULE="+ctx.Module,
		"DOTFILES_PLATFORM="+string(ctx.Platform),
	)
	if err := s.exec(script, env, ctx.Dir); err != nil {
		return true, fmt.Errorf("%w: %s: %v", ErrHookFailure, filepath.Base(script), err)
	}
	return true, nil
}

func (s *ScriptHooks) exec(script string, env []string, dir string) error {
	if s.Exec != nil {
		return s.Exec(script, env, dir)
	}
	cmd := exec.Command(script)
	cmd.Env = env
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, out)
	}
	return nil
}

func findHookScript(dir, phase string) string {
	for _, candidate := range []string{
		filepath.Join(dir, "hooks", phase),
		filepath.Join(dir, "hooks", phase+".sh"),
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
