package pkgmgr

import (
	"os/exec"

	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// Kind identifies a system package manager.
type Kind string

const (
	Brew    Kind = "brew"
	Apt     Kind = "apt"
	Yum     Kind = "yum"
	Dnf     Kind = "dnf"
	Pacman  Kind = "pacman"
	Unknown Kind = "unknown"
)

// Status of one package after an Install call.
type Status string

const (
	Installed      Status = "installed"
	AlreadyPresent Status = "already-present"
	Failed         Status = "failed"
)

// PackageOutcome is the structured result for a single package, keeping the
// exit-code/stdout interpretation of each manager behind one seam.
type PackageOutcome struct {
	Name    string // platform-specific name handed to the manager
	Status  Status
	Message string
}

// InstallResult aggregates a batch install. OK is false if any package failed.
type InstallResult struct {
	Kind     Kind
	Packages []PackageOutcome
	OK       bool
}

// Manager is the per-platform-family capability selected once after platform
// detection. Implementations wrap one concrete package manager binary.
type Manager interface {
	Kind() Kind
	// IsAvailable reports whether the manager binary is on PATH.
	IsAvailable() bool
	// IsInstalled queries the manager's installed set for a logical package.
	IsInstalled(logical string) bool
	// MapPackageName translates a logical package name to this platform's
	// package name, defaulting to identity.
	MapPackageName(logical string) string
	// Install batch-installs the given logical package names. Managers are
	// idempotent: already-installed packages are left untouched.
	Install(names []string) InstallResult
}

// CommandRunner executes a command and returns its combined output. Tests
// substitute fakes so no package manager is ever really invoked.
type CommandRunner func(name string, args ...string) ([]byte, error)

// BinaryLookup resolves a binary on PATH, exec.LookPath in production.
type BinaryLookup func(name string) (string, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Options carries the injectable seams shared by all managers.
type Options struct {
	Run    CommandRunner
	Look   BinaryLookup
	Cache  *Cache
	DryRun bool
}

func (o Options) run(name string, args ...string) ([]byte, error) {
	if o.Run != nil {
		return o.Run(name, args...)
	}
	return execRunner(name, args...)
}

func (o Options) look(name string) (string, error) {
	if o.Look != nil {
		return o.Look(name)
	}
	return exec.LookPath(name)
}

// nameOverrides maps logical package names to platform-specific names where
// the distributions disagree. Absent entries mean the name is identical
// everywhere.
var nameOverrides = map[platform.Platform]map[string]string{
	platform.AmazonLinux: {
		"vim": "vim-enhanced",
		"ag":  "the_silver_searcher",
	},
	platform.Ubuntu: {
		"fd": "fd-find",
		"ag": "silversearcher-ag",
	},
	platform.WSL: {
		"fd": "fd-find",
		"ag": "silversearcher-ag",
	},
	platform.MacOS: {
		"ag": "the_silver_searcher",
	},
}

// MapPackageName translates a logical name for the given platform. Identity
// when no override is declared, so the mapping is total.
func MapPackageName(logical string, p platform.Platform) string {
	if overrides, ok := nameOverrides[p]; ok {
		if name, ok := overrides[logical]; ok {
			return name
		}
	}
	return logical
}

// KindFor returns the package manager kind a platform uses. Amazon Linux is
// resolved by probing: dnf on AL2023, yum on AL2, unknown when neither binary
// exists.
func KindFor(p platform.Platform, look BinaryLookup) Kind {
	if look == nil {
		look = exec.LookPath
	}
	switch p {
	case platform.MacOS:
		return Brew
	case platform.Ubuntu, platform.WSL:
		return Apt
	case platform.AmazonLinux:
		if _, err := look("dnf"); err == nil {
			return Dnf
		}
		if _, err := look("yum"); err == nil {
			return Yum
		}
		return Unknown
	}
	return Unknown
}

// ManagerFor selects the Manager implementation for a platform. Unsupported
// or undetectable environments get a no-op manager of kind Unknown; callers
// treat package installation as best-effort and keep going.
func ManagerFor(p platform.Platform, opts Options) Manager {
	switch KindFor(p, opts.look) {
	case Brew:
		return &brewManager{opts: opts, plat: p}
	case Apt:
		return &aptManager{opts: opts, plat: p}
	case Dnf:
		return &rpmManager{opts: opts, plat: p, kind: Dnf, bin: "dnf"}
	case Yum:
		return &rpmManager{opts: opts, plat: p, kind: Yum, bin: "yum"}
	}
	return &noopManager{}
}
