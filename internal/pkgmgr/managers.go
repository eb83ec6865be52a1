package pkgmgr

import (
	"fmt"
	"strings"

	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// brewManager wraps Homebrew on macOS.
type brewManager struct {
	opts Options
	plat platform.Platform
}

func (m *brewManager) Kind() Kind { return Brew }

func (m *brewManager) IsAvailable() bool {
	_, err := m.opts.look("brew")
	return err == nil
}

func (m *brewManager) MapPackageName(logical string) string {
	return MapPackageName(logical, m.plat)
}

func (m *brewManager) IsInstalled(logical string) bool {
	name := m.MapPackageName(logical)
	return queryCached(m.opts.Cache, Brew, name, func() bool {
		_, err := m.opts.run("brew", "list", "--formula", name)
		return err == nil
	})
}

func (m *brewManager) Install(names []string) InstallResult {
	return batchInstall(m, m.opts, names, func(mapped []string) ([]byte, error) {
		return m.opts.run("brew", append([]string{"install"}, mapped...)...)
	})
}

// aptManager wraps apt/dpkg on Ubuntu and WSL.
type aptManager struct {
	opts Options
	plat platform.Platform
}

func (m *aptManager) Kind() Kind { return Apt }

func (m *aptManager) IsAvailable() bool {
	_, err := m.opts.look("apt-get")
	return err == nil
}

func (m *aptManager) MapPackageName(logical string) string {
	return MapPackageName(logical, m.plat)
}

func (m *aptManager) IsInstalled(logical string) bool {
	name := m.MapPackageName(logical)
	return queryCached(m.opts.Cache, Apt, name, func() bool {
		// dpkg -s exits nonzero for unknown packages but also lists
		// removed-but-not-purged ones, so check the status line too.
		out, err := m.opts.run("dpkg", "-s", name)
		return err == nil && strings.Contains(string(out), "Status: install ok installed")
	})
}

func (m *aptManager) Install(names []string) InstallResult {
	return batchInstall(m, m.opts, names, func(mapped []string) ([]byte, error) {
		return m.opts.run("sudo", append([]string{"apt-get", "install", "-y"}, mapped...)...)
	})
}

// rpmManager wraps yum or dnf on Amazon Linux; the two share rpm for queries.
type rpmManager struct {
	opts Options
	plat platform.Platform
	kind Kind
	bin  string
}

func (m *rpmManager) Kind() Kind { return m.kind }

func (m *rpmManager) IsAvailable() bool {
	_, err := m.opts.look(m.bin)
	return err == nil
}

func (m *rpmManager) MapPackageName(logical string) string {
	return MapPackageName(logical, m.plat)
}

func (m *rpmManager) IsInstalled(logical string) bool {
	name := m.MapPackageName(logical)
	return queryCached(m.opts.Cache, m.kind, name, func() bool {
		_, err := m.opts.run("rpm", "-q", name)
		return err == nil
	})
}

func (m *rpmManager) Install(names []string) InstallResult {
	return batchInstall(m, m.opts, names, func(mapped []string) ([]byte, error) {
		return m.opts.run("sudo", append([]string{m.bin, "install", "-y"}, mapped...)...)
	})
}

// noopManager stands in when no package manager can be detected. Queries
// report nothing installed and installs fail softly, so lifecycles continue
// with a warning instead of aborting.
type noopManager struct{}

func (m *noopManager) Kind() Kind                            { return Unknown }
func (m *noopManager) IsAvailable() bool                     { return false }
func (m *noopManager) IsInstalled(string) bool               { return false }
func (m *noopManager) MapPackageName(logical string) string  { return logical }
func (m *noopManager) Install(names []string) InstallResult {
	result := InstallResult{Kind: Unknown, OK: true}
	for _, name := range names {
		result.Packages = append(result.Packages, PackageOutcome{
			Name:    name,
			Status:  Failed,
			Message: "no package manager available",
		})
		result.OK = false
	}
	return result
}

// batchInstall runs one manager invocation for all not-yet-installed packages
// and folds the outcome into per-package entries. Already-present packages are
// never re-submitted.
func batchInstall(m Manager, opts Options, names []string, run func(mapped []string) ([]byte, error)) InstallResult {
	result := InstallResult{Kind: m.Kind(), OK: true}

	var pending []string
	for _, logical := range names {
		mapped := m.MapPackageName(logical)
		if m.IsInstalled(logical) {
			result.Packages = append(result.Packages, PackageOutcome{Name: mapped, Status: AlreadyPresent})
			continue
		}
		pending = append(pending, mapped)
	}
	if len(pending) == 0 {
		return result
	}

	if opts.DryRun {
		for _, name := range pending {
			result.Packages = append(result.Packages, PackageOutcome{
				Name:    name,
				Status:  Installed,
				Message: "dry-run: install skipped",
			})
		}
		return result
	}

	out, err := run(pending)
	if err != nil {
		// One nonzero exit fails the whole batch, but anything the manager
		// already placed on disk is left as-is (managers are idempotent).
		msg := fmt.Sprintf("%v: %s", err, strings.TrimSpace(string(out)))
		for _, name := range pending {
			result.Packages = append(result.Packages, PackageOutcome{Name: name, Status: Failed, Message: msg})
		}
		result.OK = false
		return result
	}

	for _, name := range pending {
		result.Packages = append(result.Packages, PackageOutcome{Name: name, Status: Installed})
		if opts.Cache != nil {
			opts.Cache.Set(installedKey(m.Kind(), name), "true")
		}
	}
	return result
}

func installedKey(kind Kind, name string) string {
	return fmt.Sprintf("installed:%s:%s", kind, name)
}

// queryCached memoizes an is-installed probe in the run-scoped cache, since
// shelling out to the manager repeatedly is the expensive part of a sync.
// Only positive answers are cached: a missing package may be installed later
// in the same run.
func queryCached(cache *Cache, kind Kind, name string, probe func() bool) bool {
	key := installedKey(kind, name)
	if cache != nil {
		if v, ok := cache.Get(key); ok {
			return v == "true"
		}
	}
	installed := probe()
	if cache != nil && installed {
		cache.Set(key, "true")
	}
	return installed
}
