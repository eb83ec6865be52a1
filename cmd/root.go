package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/keyurgolani/dotfiles-sub001/internal/assets"
	"github.com/keyurgolani/dotfiles-sub001/internal/config"
	"github.com/keyurgolani/dotfiles-sub001/internal/lifecycle"
	"github.com/keyurgolani/dotfiles-sub001/internal/logger"
	"github.com/keyurgolani/dotfiles-sub001/internal/pkgmgr"
	"github.com/keyurgolani/dotfiles-sub001/internal/platform"
)

// Flag values; empty/false means "not set", letting config/env win.
var (
	flagDebug          bool
	flagLogLevel       string
	flagLogFile        string
	flagRoot           string
	flagPlatform       string
	flagDryRun         bool
	flagYes            bool
	flagNonInteractive bool
)

// Resolved per invocation in PersistentPreRunE.
var (
	settings config.Settings
	log      *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dotfiles",
	Short: "Install, uninstall, and validate dotfiles modules",
	Long: `dotfiles manages a tree of per-tool configuration modules.

Each module directory declares its supported platforms, configuration files,
platform-specific packages, and optional lifecycle hooks in a module.yaml.
The installer detects the current platform (macos, ubuntu, wsl, amazon-linux)
and applies only what the module declares for it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		settings, err = config.Load()
		if err != nil {
			return err
		}

		// Flags outrank environment and config file.
		if flagRoot != "" {
			settings.Root = flagRoot
		}
		if flagPlatform != "" {
			settings.Platform = flagPlatform
		}
		if flagLogLevel != "" {
			settings.LogLevel = flagLogLevel
		}
		if flagLogFile != "" {
			settings.LogFile = flagLogFile
		}
		if flagDebug {
			settings.LogLevel = "DEBUG"
		}
		if flagDryRun {
			settings.DryRun = true
		}
		if flagNonInteractive {
			settings.Interactive = false
		}

		log = logger.New(logger.ParseLevel(settings.LogLevel))
		log.FilePath = settings.LogFile
		log.CleanupRotated(settings.LogRetentionDays)
		return nil
	},
}

// Execute runs the CLI. The process exits nonzero when any module failed.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Minimum console log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Append all log lines to this file")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "Modules root directory (default $DOTFILES_ROOT or ~/.dotfiles)")
	rootCmd.PersistentFlags().StringVar(&flagPlatform, "platform", "", "Override platform detection (macos, ubuntu, wsl, amazon-linux)")
	rootCmd.PersistentFlags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Log what would change without touching anything")
	rootCmd.PersistentFlags().BoolVarP(&flagYes, "yes", "y", false, "Pre-confirm destructive operations")
	rootCmd.PersistentFlags().BoolVar(&flagNonInteractive, "non-interactive", false, "Never prompt; destructive operations are skipped instead")

	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Errorf("%v", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// newRunner assembles the lifecycle runner for the detected (or overridden)
// platform. The platform is resolved exactly once per process here.
func newRunner() (*lifecycle.Runner, platform.Platform, error) {
	detector := platform.NewDetector(settings.Platform)
	detected := detector.Detect()
	log.Debugf("detected platform: %s", detected)

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, detected, fmt.Errorf("resolve home directory: %w", err)
	}

	cache := pkgmgr.OpenCache(config.CachePath())
	manager := pkgmgr.ManagerFor(detected, pkgmgr.Options{Cache: cache, DryRun: settings.DryRun})
	log.Debugf("package manager: %s", manager.Kind())

	return &lifecycle.Runner{
		Platform:    detected,
		Manager:     manager,
		Log:         log,
		Cache:       cache,
		Home:        home,
		Hooks:       &lifecycle.ScriptHooks{},
		Fetcher:     &assets.Fetcher{},
		DryRun:      settings.DryRun,
		Interactive: settings.Interactive,
		AssumeYes:   flagYes,
	}, detected, nil
}
