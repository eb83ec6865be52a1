package main

import (
	"github.com/keyurgolani/dotfiles-sub001/cmd"
)

// main delegates to cmd.Execute(), which parses the command line and runs the
// selected subcommand.
//
// This tool manages a tree of dotfiles "modules": per-tool directories that
// declare configuration files to place, platform-specific packages to ensure,
// optional downloadable assets, and lifecycle hook scripts. It detects the
// current platform (macos, ubuntu, wsl, amazon-linux), selects the matching
// package manager, and runs each requested module through its install,
// uninstall, or validate lifecycle, reporting per-phase results.
//
// Failures in one module never stop the remaining modules; the process exit
// code is nonzero when any module failed.
func main() {
	cmd.Execute()
}
