// Package notebook defines the work items of an export run: marimo
// notebooks discovered on disk, each tagged with a Kind that determines the
// converter invocation and output location.
package notebook

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/notekiln/notekiln/internal/errors"
	"github.com/notekiln/notekiln/internal/logging"
)

// SourceExtension is the only file extension considered a notebook.
const SourceExtension = ".py"

// Kind is the closed set of export classifications.
type Kind int

const (
	// KindNotebook exports a static HTML rendering.
	KindNotebook Kind = iota
	// KindNotebookWasm exports an interactive WebAssembly notebook in edit mode.
	KindNotebookWasm
	// KindApp exports a WebAssembly app in run mode with code hidden.
	KindApp
)

// kindSpec is the associated data for one classification: the converter
// argument template and the output subdirectory.
type kindSpec struct {
	name      string
	args      []string
	outputDir string
}

var kindSpecs = map[Kind]kindSpec{
	KindNotebook: {
		name:      "notebook",
		args:      []string{"marimo", "export", "html"},
		outputDir: "notebooks",
	},
	KindNotebookWasm: {
		name:      "notebook_wasm",
		args:      []string{"marimo", "export", "html-wasm", "--mode", "edit"},
		outputDir: "notebooks_wasm",
	},
	KindApp: {
		name:      "app",
		args:      []string{"marimo", "export", "html-wasm", "--mode", "run", "--no-show-code"},
		outputDir: "apps",
	},
}

// ParseKind parses a configuration string into a Kind.
func ParseKind(value string) (Kind, error) {
	for k, spec := range kindSpecs {
		if spec.name == value {
			return k, nil
		}
	}
	return 0, errors.ErrInvalidKind(value)
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if spec, ok := kindSpecs[k]; ok {
		return spec.name
	}
	return "unknown"
}

// ConverterArgs returns the converter argument template for this kind. The
// returned slice is a copy; callers may append to it.
func (k Kind) ConverterArgs() []string {
	spec := kindSpecs[k]
	args := make([]string, len(spec.args))
	copy(args, spec.args)
	return args
}

// OutputDir returns the output subdirectory for this kind, relative to the
// output root.
func (k Kind) OutputDir() string {
	return kindSpecs[k].outputDir
}

// Notebook is one convertible work item. It is immutable after construction;
// New performs all validation, so a Notebook in hand always refers to a
// regular .py file that existed at construction time.
type Notebook struct {
	path string
	kind Kind
}

// New constructs a Notebook, failing fast when path does not exist, is not a
// regular file, or does not carry the notebook extension. Symlinked files
// are followed and validated like real files.
func New(path string, kind Kind) (Notebook, error) {
	if _, ok := kindSpecs[kind]; !ok {
		return Notebook{}, errors.ErrInvalidKind(kind.String())
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Notebook{}, errors.NewValidationError(errors.ErrCodeInvalidPath, "cannot resolve path: "+filepath.Base(path))
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return Notebook{}, errors.NewValidationError(errors.ErrCodeNotebookNotFound, "notebook not found: "+filepath.Base(path))
	}
	if !fi.Mode().IsRegular() {
		return Notebook{}, errors.NewValidationError(errors.ErrCodeNotebookInvalid, "not a regular file: "+filepath.Base(path))
	}
	if filepath.Ext(abs) != SourceExtension {
		return Notebook{}, errors.NewValidationError(errors.ErrCodeNotebookInvalid, "not a Python file: "+filepath.Base(path))
	}

	return Notebook{path: abs, kind: kind}, nil
}

// Path returns the absolute source path.
func (n Notebook) Path() string {
	return n.path
}

// Kind returns the export classification.
func (n Notebook) Kind() Kind {
	return n.kind
}

// Stem returns the source filename without its extension.
func (n Notebook) Stem() string {
	base := filepath.Base(n.path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// DisplayName returns the human-readable name shown in the summary.
func (n Notebook) DisplayName() string {
	return strings.ReplaceAll(n.Stem(), "_", " ")
}

// HTMLPath returns the output-root-relative path of the exported document.
func (n Notebook) HTMLPath() string {
	return filepath.Join(n.kind.OutputDir(), n.Stem()+".html")
}

// Discover scans the top level of folder for notebooks of the given kind,
// sorted by filename. A non-existent or empty folder yields an empty slice.
// Candidates that fail Notebook validation are logged as skipped rather than
// silently ignored; subdirectories are not recursed into.
func Discover(folder string, kind Kind, log logging.Logger) []Notebook {
	if folder == "" {
		return nil
	}

	ctx := context.Background()
	log = log.WithComponent("discover")

	entries, err := os.ReadDir(folder)
	if err != nil {
		log.Debug(ctx, "folder not readable, skipping", "folder", filepath.Base(folder), "kind", kind.String())
		return nil
	}

	var notebooks []Notebook
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), SourceExtension) {
			continue
		}
		nb, err := New(filepath.Join(folder, entry.Name()), kind)
		if err != nil {
			log.Warn(ctx, err, "skipping invalid notebook", "file", entry.Name())
			continue
		}
		notebooks = append(notebooks, nb)
	}

	sort.Slice(notebooks, func(i, j int) bool {
		return notebooks[i].path < notebooks[j].path
	})

	return notebooks
}
