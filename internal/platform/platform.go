package platform

import (
	"os"
	"runtime"
	"strings"
)

// Platform identifies one of the operating environments the installer targets.
type Platform string

const (
	MacOS       Platform = "macos"
	Ubuntu      Platform = "ubuntu"
	WSL         Platform = "wsl"
	AmazonLinux Platform = "amazon-linux"
	Unsupported Platform = "unsupported"
)

// Supported lists every platform modules may declare, in a stable order.
var Supported = []Platform{MacOS, Ubuntu, WSL, AmazonLinux}

// IsSupported reports whether name is exactly one of the supported platform
// identifiers. Case variants and the empty string are not supported.
func IsSupported(name string) bool {
	for _, p := range Supported {
		if Platform(name) == p {
			return true
		}
	}
	return false
}

// Detector resolves the current Platform from OS signals and memoizes the
// result for the rest of the run. All signal sources are injectable so tests
// can simulate any environment without touching the host.
type Detector struct {
	// Override is consulted first; if it names a supported platform the
	// detector returns it without probing anything else. Typically fed from
	// the DOTFILES_PLATFORM environment variable or the --platform flag.
	Override string

	// Kernel returns the kernel family name ("darwin", "linux", ...).
	// Defaults to runtime.GOOS.
	Kernel func() string

	// Getenv reads an environment variable. Defaults to os.Getenv.
	Getenv func(string) string

	// ReadFile reads a marker file such as /etc/os-release or /proc/version.
	// Defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)

	detected Platform
	done     bool
}

// NewDetector returns a Detector wired to the real host signals.
func NewDetector(override string) *Detector {
	return &Detector{Override: override}
}

// Detect returns the platform for this run. The first call computes it; every
// later call returns the memoized value until Invalidate is called. Detect
// never fails: environments it cannot classify come back as Unsupported.
func (d *Detector) Detect() Platform {
	if d.done {
		return d.detected
	}
	d.detected = d.probe()
	d.done = true
	return d.detected
}

// Invalidate clears the memoized result so the next Detect re-probes.
func (d *Detector) Invalidate() {
	d.done = false
	d.detected = ""
}

func (d *Detector) probe() Platform {
	if IsSupported(d.Override) {
		return Platform(d.Override)
	}

	switch d.kernel() {
	case "darwin":
		return MacOS
	case "linux":
		return d.classifyLinux()
	}
	return Unsupported
}

// classifyLinux disambiguates the Linux family: WSL markers first, then the
// Amazon Linux os-release id, else Ubuntu (the only other Linux target).
func (d *Detector) classifyLinux() Platform {
	if d.getenv("WSL_DISTRO_NAME") != "" || d.getenv("WSL_INTEROP") != "" {
		return WSL
	}
	if version, err := d.readFile("/proc/version"); err == nil {
		lower := strings.ToLower(string(version))
		if strings.Contains(lower, "microsoft") || strings.Contains(lower, "wsl") {
			return WSL
		}
	}
	if release, err := d.readFile("/etc/os-release"); err == nil {
		if osReleaseID(string(release)) == "amzn" {
			return AmazonLinux
		}
	}
	return Ubuntu
}

// osReleaseID pulls the ID= value out of /etc/os-release content, stripping
// optional quotes.
func osReleaseID(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ID=") {
			continue
		}
		return strings.Trim(strings.TrimPrefix(line, "ID="), `"'`)
	}
	return ""
}

func (d *Detector) kernel() string {
	if d.Kernel != nil {
		return d.Kernel()
	}
	return runtime.GOOS
}

func (d *Detector) getenv(key string) string {
	if d.Getenv != nil {
		return d.Getenv(key)
	}
	return os.Getenv(key)
}

func (d *Detector) readFile(path string) ([]byte, error) {
	if d.ReadFile != nil {
		return d.ReadFile(path)
	}
	return os.ReadFile(path)
}
