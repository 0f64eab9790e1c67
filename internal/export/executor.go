// Package export drives the conversion of notebooks into rendered documents
// by invoking the external converter once per work item, with per-item
// timeouts, failure isolation, and audit logging around the process
// boundary.
package export

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/notekiln/notekiln/internal/audit"
	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/notebook"
	"github.com/notekiln/notekiln/internal/validation"
)

// DefaultTimeout bounds one converter invocation.
const DefaultTimeout = 300 * time.Second

// converterRunner is the launcher binary for the converter toolchain.
const converterRunner = "uvx"

// allowedCommands is the allowlist for converter binaries.
var allowedCommands = map[string]bool{
	"uvx":    true,
	"marimo": true,
}

// outputFileMode is owner read/write, group and others read-only.
const outputFileMode os.FileMode = 0o644

// stderrLimit caps how much converter stderr is kept in a failure detail.
const stderrLimit = 200

// ExecutorConfig configures an Executor.
type ExecutorConfig struct {
	// BinPath optionally names the directory holding the converter runner.
	// Empty means the runner is resolved from PATH.
	BinPath string
	// Sandbox toggles the converter's isolated-environment flag.
	Sandbox bool
	// Timeout is the wall-clock limit per invocation; zero applies
	// DefaultTimeout.
	Timeout time.Duration
}

// Executor runs one converter invocation per notebook.
type Executor struct {
	binPath string
	sandbox bool
	timeout time.Duration
	audit   *audit.Logger
	log     logging.Logger
}

// NewExecutor creates an Executor. The audit logger is required; every
// invocation emits exactly one export-attempt event.
func NewExecutor(cfg ExecutorConfig, auditLog *audit.Logger, log logging.Logger) *Executor {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Executor{
		binPath: cfg.BinPath,
		sandbox: cfg.Sandbox,
		timeout: timeout,
		audit:   auditLog,
		log:     log.WithComponent("export"),
	}
}

// Export converts one notebook into outputRoot. Failures never escape as
// errors; every failure mode becomes a failed Outcome so sibling exports
// are unaffected.
func (e *Executor) Export(ctx context.Context, nb notebook.Notebook, outputRoot string) Outcome {
	outcome := e.export(ctx, nb, outputRoot)
	e.audit.RecordExportAttempt(nb.Path(), outcome.OutputPath(), outcome.Succeeded(), outcome.FailureDetail())
	return outcome
}

func (e *Executor) export(ctx context.Context, nb notebook.Notebook, outputRoot string) Outcome {
	destDir, err := e.prepareDestination(nb, outputRoot)
	if err != nil {
		return Failed(nb.Path(), validation.SanitizeMessage(err.Error()))
	}

	exe, err := e.resolveRunner()
	if err != nil {
		return Failed(nb.Path(), fmt.Sprintf("executable %q not found: %s", converterRunner, validation.SanitizeMessage(err.Error())))
	}

	outputFile := filepath.Join(destDir, nb.Stem()+".html")

	args, err := e.buildArgs(nb, outputFile)
	if err != nil {
		return Failed(nb.Path(), validation.SanitizeMessage(err.Error()))
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.log.Debug(ctx, "running converter",
		"notebook", nb.Stem(),
		"kind", nb.Kind().String(),
	)

	cmd := exec.CommandContext(runCtx, exe, args...)
	output, err := cmd.CombinedOutput()
	if runCtx.Err() == context.DeadlineExceeded {
		return Failed(nb.Path(), fmt.Sprintf("export timed out after %s", e.timeout))
	}
	if err != nil {
		return Failed(nb.Path(), exitDetail(err, output))
	}

	if err := os.Chmod(outputFile, outputFileMode); err != nil {
		return Failed(nb.Path(), "cannot set permissions on output: "+validation.SanitizeMessage(err.Error()))
	}

	return Succeeded(nb.Path(), outputFile)
}

// prepareDestination validates the per-kind destination directory against
// the output root and creates it. The resolved path, not the joined string,
// is returned for all subsequent use.
func (e *Executor) prepareDestination(nb notebook.Notebook, outputRoot string) (string, error) {
	candidate := filepath.Join(outputRoot, nb.Kind().OutputDir())

	resolved, err := validation.ValidatePathTraversal(candidate, outputRoot, true)
	if err != nil {
		e.audit.RecordPathValidation(candidate, "destination", false, err.Error())
		return "", err
	}
	e.audit.RecordPathValidation(candidate, "destination", true, "")

	if err := os.MkdirAll(resolved, 0o755); err != nil {
		return "", fmt.Errorf("cannot create destination directory: %w", err)
	}
	return resolved, nil
}

// resolveRunner locates the converter runner, preferring an explicit binary
// directory when configured.
func (e *Executor) resolveRunner() (string, error) {
	if e.binPath != "" {
		return exec.LookPath(filepath.Join(e.binPath, converterRunner))
	}
	return exec.LookPath(converterRunner)
}

// buildArgs assembles the converter argument list from the notebook's kind.
// Arguments are passed as an explicit list to the process-spawn primitive;
// no shell is ever involved.
func (e *Executor) buildArgs(nb notebook.Notebook, outputFile string) ([]string, error) {
	args := nb.Kind().ConverterArgs()

	if err := validation.ValidateCommand(args[0], allowedCommands); err != nil {
		return nil, err
	}
	for _, arg := range args[1:] {
		if err := validation.ValidateArgument(arg); err != nil {
			return nil, err
		}
	}

	if e.sandbox {
		args = append(args, "--sandbox")
	} else {
		args = append(args, "--no-sandbox")
	}
	args = append(args, nb.Path(), "-o", outputFile)
	return args, nil
}

// exitDetail builds a sanitized diagnostic from a converter failure.
func exitDetail(err error, output []byte) string {
	detail := err.Error()
	if exitErr, ok := err.(*exec.ExitError); ok {
		detail = fmt.Sprintf("converter exited with status %d", exitErr.ExitCode())
	}
	if trimmed := strings.TrimSpace(string(output)); trimmed != "" {
		if len(trimmed) > stderrLimit {
			trimmed = trimmed[:stderrLimit]
		}
		detail += ": " + trimmed
	}
	return validation.SanitizeMessage(detail)
}
