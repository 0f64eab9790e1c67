// Package validation provides security validation guarding the filesystem
// and process boundaries: path traversal containment, file size ceilings,
// worker count clamping, converter command allowlisting, and diagnostic
// sanitization.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/notekiln/notekiln/internal/errors"
)

// DefaultMaxFileSize is the ceiling applied to templates and notebooks
// before they are opened for reading.
const DefaultMaxFileSize int64 = 10 << 20 // 10 MiB

// Worker pool bounds enforced by ValidateMaxWorkers.
const (
	MinWorkers = 1
	MaxWorkers = 16
)

// ValidatePathTraversal resolves candidate and verifies it is equal to or
// contained within baseDir. The returned resolved path, not the original
// string, must be used for all subsequent filesystem operations so that the
// check and the use refer to the same file.
func ValidatePathTraversal(candidate, baseDir string, allowSymlinks bool) (string, error) {
	if candidate == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPath, "empty path")
	}
	if baseDir == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPath, "empty base directory")
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPath, "cannot resolve base directory")
	}
	absBase = resolveSymlinks(absBase)

	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidPath, "cannot resolve path")
	}

	if !allowSymlinks {
		if fi, lerr := os.Lstat(absCandidate); lerr == nil && fi.Mode()&os.ModeSymlink != 0 {
			return "", errors.ErrSymlinkDenied(filepath.Base(candidate))
		}
	}

	resolved := resolveSymlinks(absCandidate)

	rel, err := filepath.Rel(absBase, resolved)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.ErrPathTraversal(fmt.Sprintf("%s escapes base directory", filepath.Base(candidate)))
	}

	return resolved, nil
}

// resolveSymlinks resolves as much of path as exists on disk, leaving the
// non-existent suffix untouched. Mirrors resolution of paths that are about
// to be created.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	dir := filepath.Dir(filepath.Clean(path))
	if dir == path {
		return path
	}
	return filepath.Join(resolveSymlinks(dir), filepath.Base(path))
}

// ValidateFileSize rejects files exceeding maxBytes before they are opened
// for reading. A maxBytes of zero or less applies DefaultMaxFileSize.
func ValidateFileSize(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileSize
	}

	fi, err := os.Stat(path)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeInvalidPath, "cannot stat file: "+filepath.Base(path), err)
	}
	if !fi.Mode().IsRegular() {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "not a regular file: "+filepath.Base(path))
	}
	if fi.Size() > maxBytes {
		return errors.ErrFileTooLarge(fmt.Sprintf("%s (%d bytes > %d)", filepath.Base(path), fi.Size(), maxBytes))
	}

	return nil
}

// ValidateMaxWorkers clamps an untrusted worker count into [MinWorkers,
// MaxWorkers] rather than rejecting it outright.
func ValidateMaxWorkers(n int) int {
	if n < MinWorkers {
		return MinWorkers
	}
	if n > MaxWorkers {
		return MaxWorkers
	}
	return n
}

// ValidateCommand validates a converter command name against an allowlist.
func ValidateCommand(command string, allowedCommands map[string]bool) error {
	if command == "" {
		return errors.NewSecurityError(errors.ErrCodeExecNotFound, "command cannot be empty")
	}
	if !allowedCommands[filepath.Base(command)] {
		return errors.NewSecurityError(errors.ErrCodeExecNotFound, "command not allowed: "+filepath.Base(command))
	}
	return nil
}

// ValidateArgument validates a fixed command-template argument to prevent
// injection through configuration. Validated file paths are passed
// separately and are not subject to this check.
func ValidateArgument(arg string) error {
	dangerous := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}
	for _, char := range dangerous {
		if strings.Contains(arg, char) {
			return errors.NewSecurityError(errors.ErrCodeInvalidPath, "argument contains dangerous character: "+char)
		}
	}
	if strings.Contains(arg, "..") {
		return errors.ErrPathTraversal(arg)
	}
	return nil
}

// absPathPattern matches absolute Unix and Windows paths, capturing the
// final component so diagnostics keep the filename.
var absPathPattern = regexp.MustCompile(`(?:[A-Za-z]:)?[/\\](?:[^/\\:\s]+[/\\])+([^/\\:\s]+)`)

// SanitizeMessage strips absolute local paths from a diagnostic, keeping
// only filenames, and masks the home directory prefix. Applied to every
// message placed in an outcome, audit event, or user-facing error.
func SanitizeMessage(msg string) string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		msg = strings.ReplaceAll(msg, home, "<home>")
	}
	return absPathPattern.ReplaceAllString(msg, "<redacted>/$1")
}
