package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// DescriptorFile is the per-module declaration file name.
const DescriptorFile = "module.yaml"

// FileMapping declares one configuration file to place: Source is relative to
// the module directory, Target is the destination path (~ expands to the home
// directory).
type FileMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

// Package is one logical package a module wants present. Required packages
// fail the package phase when they cannot be installed; optional ones only
// produce a warning.
type Package struct {
	Name     string `yaml:"name"`
	Required bool   `yaml:"required"`
}

// UnmarshalYAML accepts either a bare string ("git") or the full mapping form
// ({name: git, required: true}), keeping simple descriptors simple.
func (p *Package) UnmarshalYAML(node *yaml.Node) error {
	var name string
	if err := node.Decode(&name); err == nil {
		p.Name = name
		return nil
	}
	type plain Package
	return node.Decode((*plain)(p))
}

// Asset declares a downloadable archive (font bundle, plugin pack, theme)
// installed alongside the module's files. Either URL or Repo+Tag+Pattern is
// set; the archive is extracted into Target.
type Asset struct {
	Name    string `yaml:"name"`
	URL     string `yaml:"url"`
	Repo    string `yaml:"repo"`
	Tag     string `yaml:"tag"`
	Pattern string `yaml:"pattern"`
	Target  string `yaml:"target"`
}

// Descriptor is one installable tool's static declaration, read from
// module.yaml in its module directory and never mutated at runtime.
type Descriptor struct {
	Name      string                          `yaml:"name"`
	Platforms []platform.Platform             `yaml:"platforms"`
	Files     []FileMapping                   `yaml:"files"`
	Packages  map[platform.Platform][]Package `yaml:"packages"`
	Assets    []Asset                         `yaml:"assets"`

	// RequiredHooks lists lifecycle phases whose hook failure aborts the
	// module (e.g. "pre-install"). Hooks are advisory by default.
	RequiredHooks []string `yaml:"required_hooks"`

	// Dir is the module directory the descriptor was loaded from.
	Dir string `yaml:"-"`
}

// SupportsPlatform reports whether the module declares p.
func (d *Descriptor) SupportsPlatform(p platform.Platform) bool {
	for _, declared := range d.Platforms {
		if declared == p {
			return true
		}
	}
	return false
}

// PackagesFor returns the logical package list declared for p.
func (d *Descriptor) PackagesFor(p platform.Platform) []Package {
	return d.Packages[p]
}

// HookRequired reports whether a hook phase is marked load-bearing.
func (d *Descriptor) HookRequired(phase string) bool {
	for _, h := range d.RequiredHooks {
		if h == phase {
			return true
		}
	}
	return false
}

// Load reads and validates the descriptor in dir.
func Load(dir string) (*Descriptor, error) {
	path := filepath.Join(dir, DescriptorFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var wrapper struct {
		Module Descriptor `yaml:"module"`
	}
	if err := yaml.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	d := wrapper.Module
	d.Dir = dir

	if d.Name == "" {
		d.Name = filepath.Base(dir)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &d, nil
}

func (d *Descriptor) validate() error {
	if len(d.Platforms) == 0 {
		return fmt.Errorf("module %q declares no platforms", d.Name)
	}
	for _, p := range d.Platforms {
		if !platform.IsSupported(string(p)) {
			return fmt.Errorf("module %q declares unknown platform %q", d.Name, p)
		}
	}
	for p := range d.Packages {
		if !platform.IsSupported(string(p)) {
			return fmt.Errorf("module %q maps packages for unknown platform %q", d.Name, p)
		}
	}
	for _, f := range d.Files {
		if f.Source == "" || f.Target == "" {
			return fmt.Errorf("module %q has a file mapping with empty source or target", d.Name)
		}
		if strings.Contains(f.Source, "..") {
			return fmt.Errorf("module %q file source %q escapes the module directory", d.Name, f.Source)
		}
	}
	return nil
}

// Discover walks root's immediate subdirectories and loads every module
// descriptor it finds, sorted by module name. Directories without a
// module.yaml are ignored; a malformed descriptor fails the whole discovery
// so a typo never silently drops a module.
func Discover(root string) ([]*Descriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read modules root %s: %w", root, err)
	}

	var modules []*Descriptor
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, DescriptorFile)); err != nil {
			continue
		}
		d, err := Load(dir)
		if err != nil {
			return nil, err
		}
		modules = append(modules, d)
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Name < modules[j].Name })
	return modules, nil
}

// ExpandTarget resolves a target path, expanding a leading ~ to home.
func ExpandTarget(target, home string) string {
	if target == "~" {
		return home
	}
	if strings.HasPrefix(target, "~/") {
		return filepath.Join(home, target[2:])
	}
	return target
}
