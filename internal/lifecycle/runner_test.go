package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyurgolani/dotfiles-sub001/internal/logger"
	"github.com/keyurgolani/dotfiles-sub001/internal/module"
	"github.com/keyurgolani/dotfiles-sub001/internal/pkgmgr"
	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// fakeManager implements pkgmgr.Manager entirely in memory.
type fakeManager struct {
	kind      pkgmgr.Kind
	available bool
	installed map[string]bool
	failWith  map[string]string
	batches   [][]string
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		kind:      pkgmgr.Brew,
		available: true,
		installed: make(map[string]bool),
		failWith:  make(map[string]string),
	}
}

func (m *fakeManager) Kind() pkgmgr.Kind                   { return m.kind }
func (m *fakeManager) IsAvailable() bool                   { return m.available }
func (m *fakeManager) IsInstalled(logical string) bool     { return m.installed[logical] }
func (m *fakeManager) MapPackageName(logical string) string { return logical }

func (m *fakeManager) Install(names []string) pkgmgr.InstallResult {
	result := pkgmgr.InstallResult{Kind: m.kind, OK: true}
	var batch []string
	for _, name := range names {
		if m.installed[name] {
			result.Packages = append(result.Packages, pkgmgr.PackageOutcome{Name: name, Status: pkgmgr.AlreadyPresent})
			continue
		}
		if msg, ok := m.failWith[name]; ok {
			result.Packages = append(result.Packages, pkgmgr.PackageOutcome{Name: name, Status: pkgmgr.Failed, Message: msg})
			result.OK = false
			continue
		}
		m.installed[name] = true
		batch = append(batch, name)
		result.Packages = append(result.Packages, pkgmgr.PackageOutcome{Name: name, Status: pkgmgr.Installed})
	}
	if len(batch) > 0 {
		m.batches = append(m.batches, batch)
	}
	return result
}

// fakeHooks is a HookRunner driven by a per-phase table.
type fakeHooks struct {
	declared map[string]error // phase -> hook result; absent phase = no hook
	ran      []string
}

func (h *fakeHooks) Run(phase string, ctx HookContext) (bool, error) {
	err, ok := h.declared[phase]
	if !ok {
		return false, nil
	}
	h.ran = append(h.ran, phase)
	if err != nil {
		return true, fmt.Errorf("%w: %v", ErrHookFailure, err)
	}
	return true, nil
}

type fixture struct {
	runner  *Runner
	manager *fakeManager
	hooks   *fakeHooks
	home    string
	root    string
}

func newFixture(t *testing.T, p platform.Platform) *fixture {
	t.Helper()
	manager := newFakeManager()
	hooks := &fakeHooks{declared: map[string]error{}}
	home := t.TempDir()
	return &fixture{
		runner: &Runner{
			Platform: p,
			Manager:  manager,
			Log:      &logger.Logger{Quiet: true},
			Home:     home,
			Hooks:    hooks,
		},
		manager: manager,
		hooks:   hooks,
		home:    home,
		root:    t.TempDir(),
	}
}

// gitModule builds a module directory with a gitconfig source file.
func (f *fixture) gitModule(t *testing.T) *module.Descriptor {
	t.Helper()
	dir := filepath.Join(f.root, "git")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gitconfig"), []byte("[user]\n\tname = Example\n"), 0644))
	return &module.Descriptor{
		Name:      "git",
		Dir:       dir,
		Platforms: []platform.Platform{platform.MacOS},
		Files:     []module.FileMapping{{Source: "gitconfig", Target: "~/.gitconfig"}},
		Packages: map[platform.Platform][]module.Package{
			platform.MacOS: {{Name: "git"}},
		},
	}
}

func (f *fixture) targetPath(name string) string {
	return filepath.Join(f.home, name)
}

func TestInstallFreshModule(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)

	result := f.runner.Install(mod)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, f.manager.installed["git"], "package should be installed")

	data, err := os.ReadFile(f.targetPath(".gitconfig"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name = Example")

	// No pre-existing target means no backup.
	_, err = os.Stat(f.targetPath(".gitconfig.backup"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstallTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)

	first := f.runner.Install(mod)
	require.Equal(t, StatusSuccess, first.Status)

	second := f.runner.Install(mod)
	assert.Equal(t, StatusSuccess, second.Status)

	// Second run: file phase is a no-op, no backup churn, no re-install.
	var filePhase PhaseResult
	for _, p := range second.Phases {
		if p.Phase == PhaseFiles {
			filePhase = p
		}
	}
	assert.Contains(t, filePhase.Message, "no-op")

	entries, err := os.ReadDir(f.home)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".gitconfig", entries[0].Name())

	require.Len(t, f.manager.batches, 1, "package batch must run only once")
}

func TestInstallSkippedOnUndeclaredPlatform(t *testing.T) {
	f := newFixture(t, platform.Ubuntu)
	mod := f.gitModule(t) // declares macos only

	result := f.runner.Install(mod)

	assert.Equal(t, StatusSkipped, result.Status)
	assert.False(t, result.Failed(), "a skip is not a failure")
	assert.Empty(t, f.manager.batches, "no package operations attempted")
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.True(t, os.IsNotExist(err), "no file operations attempted")
}

func TestInstallBacksUpDifferingTarget(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("old user config"), 0644))

	result := f.runner.Install(mod)
	require.Equal(t, StatusSuccess, result.Status)

	backup, err := os.ReadFile(f.targetPath(".gitconfig.backup"))
	require.NoError(t, err)
	assert.Equal(t, "old user config", string(backup))

	installed, err := os.ReadFile(f.targetPath(".gitconfig"))
	require.NoError(t, err)
	assert.Contains(t, string(installed), "name = Example")
}

func TestMissingHooksAreVacuouslySuccessful(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	result := f.runner.Install(f.gitModule(t))

	assert.Equal(t, StatusSuccess, result.Status)
	for _, p := range result.Phases {
		if p.Phase == PhasePreInstall || p.Phase == PhasePostInstall {
			assert.Equal(t, PhaseOK, p.Status)
			assert.Equal(t, "no hook declared", p.Message)
		}
	}
}

func TestRequiredHookFailureAbortsModule(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	mod.RequiredHooks = []string{PhasePreInstall}
	f.hooks.declared[PhasePreInstall] = errors.New("exit status 1")

	result := f.runner.Install(mod)

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, result.Failed())
	assert.Empty(t, f.manager.batches, "later phases must not run")
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.True(t, os.IsNotExist(err))
}

func TestAdvisoryHookFailureContinues(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	f.hooks.declared[PhasePostInstall] = errors.New("exit status 1")

	result := f.runner.Install(mod)

	assert.Equal(t, StatusPartial, result.Status)
	assert.False(t, result.Failed(), "advisory failures do not fail the module")
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.NoError(t, err, "files still installed")
}

func TestRequiredPackageFailureAborts(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	mod.Packages[platform.MacOS] = []module.Package{{Name: "git", Required: true}}
	f.manager.failWith["git"] = "formula not found"

	result := f.runner.Install(mod)

	assert.Equal(t, StatusFailed, result.Status)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.True(t, os.IsNotExist(err), "file phase must not run")
}

func TestOptionalPackageFailureContinues(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	f.manager.failWith["git"] = "formula not found"

	result := f.runner.Install(mod)

	assert.Equal(t, StatusPartial, result.Status)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.NoError(t, err, "file phase still runs best-effort")
}

func TestMissingManagerIsFatalOnlyForRequiredPackages(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	f.manager.available = false

	result := f.runner.Install(mod)
	assert.Equal(t, StatusPartial, result.Status)

	mod.Packages[platform.MacOS] = []module.Package{{Name: "git", Required: true}}
	result = f.runner.Install(mod)
	assert.Equal(t, StatusFailed, result.Status)
}

func TestUninstallNeverInstalledModule(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	result := f.runner.Uninstall(f.gitModule(t))

	assert.Equal(t, StatusSuccess, result.Status)
	var removal PhaseResult
	for _, p := range result.Phases {
		if p.Phase == PhaseFileRemoval {
			removal = p
		}
	}
	assert.Equal(t, PhaseOK, removal.Status)
	assert.Equal(t, "nothing to remove", removal.Message)
}

func TestUninstallRemovesInstalledFileAndRestoresBackup(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("old user config"), 0644))
	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)

	result := f.runner.Uninstall(mod)
	require.Equal(t, StatusSuccess, result.Status)

	// The pre-install original is back in place, the backup consumed.
	data, err := os.ReadFile(f.targetPath(".gitconfig"))
	require.NoError(t, err)
	assert.Equal(t, "old user config", string(data))
	_, err = os.Stat(f.targetPath(".gitconfig.backup"))
	assert.True(t, os.IsNotExist(err))
}

func TestUninstallPreservesUserModifiedFileWithoutConfirmation(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)

	// User edits the installed file afterwards; no backup exists.
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("[user]\n\temail = me@example.com\n"), 0644))

	result := f.runner.Uninstall(mod)
	assert.Equal(t, StatusSuccess, result.Status)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.NoError(t, err, "modified file must survive without confirmation")
}

func TestUninstallRemovesUserModifiedFileWhenPreConfirmed(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("edited"), 0644))

	f.runner.AssumeYes = true
	result := f.runner.Uninstall(mod)
	require.Equal(t, StatusSuccess, result.Status)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.True(t, os.IsNotExist(err))
}

func TestUninstallPromptsInInteractiveMode(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("edited"), 0644))

	prompted := false
	f.runner.Interactive = true
	f.runner.Confirm = func(prompt string) bool {
		prompted = true
		return false
	}

	result := f.runner.Uninstall(mod)
	assert.Equal(t, StatusSuccess, result.Status)
	assert.True(t, prompted)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.NoError(t, err, "declined prompt keeps the file")
}

func TestValidate(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)

	// Never installed: one missing target.
	result, problems := f.runner.Validate(mod)
	assert.Equal(t, 1, problems)
	assert.Equal(t, StatusFailed, result.Status)

	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)
	result, problems = f.runner.Validate(mod)
	assert.Equal(t, 0, problems)
	assert.Equal(t, StatusSuccess, result.Status)

	// Drifted content counts as a validation error but mutates nothing.
	require.NoError(t, os.WriteFile(f.targetPath(".gitconfig"), []byte("drift"), 0644))
	_, problems = f.runner.Validate(mod)
	assert.Equal(t, 1, problems)
	data, err := os.ReadFile(f.targetPath(".gitconfig"))
	require.NoError(t, err)
	assert.Equal(t, "drift", string(data))
}

func TestDryRunMakesNoChanges(t *testing.T) {
	f := newFixture(t, platform.MacOS)
	mod := f.gitModule(t)
	f.runner.DryRun = true

	result := f.runner.Install(mod)
	assert.Equal(t, StatusSuccess, result.Status)
	_, err := os.Stat(f.targetPath(".gitconfig"))
	assert.True(t, os.IsNotExist(err))

	// Dry-run uninstall of an installed file leaves it alone too.
	f.runner.DryRun = false
	require.Equal(t, StatusSuccess, f.runner.Install(mod).Status)
	f.runner.DryRun = true
	require.Equal(t, StatusSuccess, f.runner.Uninstall(mod).Status)
	_, err = os.Stat(f.targetPath(".gitconfig"))
	assert.NoError(t, err)
}
