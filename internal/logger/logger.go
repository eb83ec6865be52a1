package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Level is the severity of a log line.
type Level int

const (
	DEBUG Level = iota
	INFO
	SUCCESS
	WARN
	ERROR
)

// ParseLevel maps a level name (any case) to a Level. Unknown names come back
// as INFO so a typo in DOTFILES_LOG_LEVEL never silences the log.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "SUCCESS":
		return SUCCESS
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	}
	return INFO
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case SUCCESS:
		return "SUCCESS"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "INFO"
}

// Colorized printers per level. INFO is green, SUCCESS bold green, WARN bright
// magenta, ERROR red, DEBUG cyan.
var printers = map[Level]func(format string, a ...any){
	DEBUG:   color.New(color.FgCyan).PrintfFunc(),
	INFO:    color.New(color.FgGreen).PrintfFunc(),
	SUCCESS: color.New(color.FgGreen, color.Bold).PrintfFunc(),
	WARN:    color.New(color.FgHiMagenta).PrintfFunc(),
	ERROR:   color.New(color.FgRed).PrintfFunc(),
}

// Logger writes timestamped, level-tagged lines to the console and, when a
// file path is configured, appends the same line there. The console honors
// MinLevel; the file records every level so the full history survives a quiet
// console. Logging never returns an error: an unwritable file silently
// degrades the logger to console-only output.
type Logger struct {
	// MinLevel suppresses console output below this severity.
	MinLevel Level

	// FilePath, when non-empty, receives every line regardless of MinLevel.
	FilePath string

	// MaxLines triggers rotation once the active file reaches this many
	// lines. Zero means the default of 10000.
	MaxLines int

	// MaxRotated bounds how many rotated files (.1 .. .N) are kept.
	// Zero means the default of 5.
	MaxRotated int

	// Quiet drops console output entirely; the file sink still records.
	Quiet bool

	// Now is injectable for retention tests. Defaults to time.Now.
	Now func() time.Time

	fileLines int
	counted   bool
}

// New returns a console logger at the given minimum level.
func New(min Level) *Logger {
	return &Logger{MinLevel: min}
}

// Debugf logs at DEBUG level.
func (l *Logger) Debugf(format string, a ...any) { l.log(DEBUG, format, a...) }

// Infof logs at INFO level.
func (l *Logger) Infof(format string, a ...any) { l.log(INFO, format, a...) }

// Successf logs at SUCCESS level.
func (l *Logger) Successf(format string, a ...any) { l.log(SUCCESS, format, a...) }

// Warnf logs at WARN level.
func (l *Logger) Warnf(format string, a ...any) { l.log(WARN, format, a...) }

// Errorf logs at ERROR level.
func (l *Logger) Errorf(format string, a ...any) { l.log(ERROR, format, a...) }

func (l *Logger) log(level Level, format string, a ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	line := fmt.Sprintf("%s [%s] %s", l.now().Format("2006-01-02 15:04:05"), level, msg)

	if !l.Quiet && level >= l.MinLevel {
		printers[level]("%s\n", line)
	}
	l.appendToFile(line)
}

// appendToFile writes one line to the configured log file, rotating first if
// the active file is at the line threshold. All failures are swallowed.
func (l *Logger) appendToFile(line string) {
	if l.FilePath == "" {
		return
	}

	if !l.counted {
		l.fileLines = countLines(l.FilePath)
		l.counted = true
	}
	if l.fileLines >= l.maxLines() {
		l.rotate()
	}

	f, err := os.OpenFile(l.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err == nil {
		l.fileLines++
	}
}

// rotate shifts existing rotated files up one slot (.1 -> .2, ...), drops the
// oldest past MaxRotated, and renames the active file to .1.
func (l *Logger) rotate() {
	max := l.maxRotated()
	_ = os.Remove(fmt.Sprintf("%s.%d", l.FilePath, max))
	for i := max - 1; i >= 1; i-- {
		_ = os.Rename(fmt.Sprintf("%s.%d", l.FilePath, i), fmt.Sprintf("%s.%d", l.FilePath, i+1))
	}
	_ = os.Rename(l.FilePath, l.FilePath+".1")
	l.fileLines = 0
}

// CleanupRotated deletes rotated log files older than retentionDays. The
// active log file is never touched.
func (l *Logger) CleanupRotated(retentionDays int) {
	if l.FilePath == "" || retentionDays <= 0 {
		return
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	matches, err := filepath.Glob(l.FilePath + ".*")
	if err != nil {
		return
	}
	for _, match := range matches {
		// Only numeric suffixes belong to rotation.
		suffix := strings.TrimPrefix(match, l.FilePath+".")
		if _, err := strconv.Atoi(suffix); err != nil {
			continue
		}
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(match)
		}
	}
}

func (l *Logger) maxLines() int {
	if l.MaxLines > 0 {
		return l.MaxLines
	}
	return 10000
}

func (l *Logger) maxRotated() int {
	if l.MaxRotated > 0 {
		return l.MaxRotated
	}
	return 5
}

func (l *Logger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func countLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return 0
	}
	return strings.Count(string(data), "\n")
}
