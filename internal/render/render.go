// Package render builds the index.html summary page from a completed batch.
// Templates are treated as untrusted input: the path is validated against a
// permitted base directory and a size ceiling before the file is ever read,
// and evaluation happens under html/template's contextual autoescaping, so a
// hostile template cannot emit script into the page or reach the filesystem.
package render

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/notekiln/notekiln/internal/audit"
	"github.com/notekiln/notekiln/internal/errors"
	"github.com/notekiln/notekiln/internal/export"
	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/notebook"
	"github.com/notekiln/notekiln/internal/validation"
)

// SummaryFileName is the file written into the output root.
const SummaryFileName = "index.html"

const summaryFileMode = 0o644

// Entry is one succeeded export as seen by the template.
type Entry struct {
	DisplayName string
	HTMLPath    string
	SourcePath  string
	Kind        string
}

// Context is the complete data surface exposed to templates. Templates see
// these three collections and nothing else.
type Context struct {
	Notebooks     []Entry
	NotebooksWasm []Entry
	Apps          []Entry
}

// RendererConfig carries the template source and limits.
type RendererConfig struct {
	// TemplatePath selects a template file on disk. Empty means the
	// embedded default.
	TemplatePath string
	// TemplateBase is the directory templates must resolve inside. Empty
	// defaults to the template's own directory, which permits any direct
	// path but still rejects traversal constructions.
	TemplateBase string
	// MaxTemplateSize bounds the template file; zero applies the package
	// default ceiling.
	MaxTemplateSize int64
	// DefaultTemplate is the fallback template text used when
	// TemplatePath is empty.
	DefaultTemplate string
}

// Renderer turns a batch result into the summary page.
type Renderer struct {
	cfg   RendererConfig
	audit *audit.Logger
	log   logging.Logger
}

// NewRenderer creates a Renderer.
func NewRenderer(cfg RendererConfig, auditLog *audit.Logger, log logging.Logger) *Renderer {
	return &Renderer{
		cfg:   cfg,
		audit: auditLog,
		log:   log.WithComponent("render"),
	}
}

// Render evaluates the template over the batch and returns the summary HTML.
// Only succeeded outcomes appear; an empty batch renders a page with all
// three sections empty. Failures are run-level errors, not outcomes.
func (r *Renderer) Render(batch *export.BatchResult, items []notebook.Notebook) (string, error) {
	tmpl, err := r.loadTemplate()
	if err != nil {
		r.audit.RecordTemplateRender(r.templateName(), false, err.Error())
		return "", err
	}

	renderCtx := buildContext(batch, items)

	var sb strings.Builder
	if err := tmpl.Execute(&sb, renderCtx); err != nil {
		r.audit.RecordTemplateRender(r.templateName(), false, validation.SanitizeMessage(err.Error()))
		return "", errors.NewRenderError(errors.ErrCodeTemplateRender,
			"template execution failed: "+validation.SanitizeMessage(err.Error()), err)
	}

	r.audit.RecordTemplateRender(r.templateName(), true, "")
	return sb.String(), nil
}

// WriteSummary renders the batch and writes index.html into outputRoot,
// creating the directory when absent. The summary is written even when the
// batch is empty or every item failed.
func (r *Renderer) WriteSummary(batch *export.BatchResult, items []notebook.Notebook, outputRoot string) (string, error) {
	html, err := r.Render(batch, items)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return "", errors.NewIOError(errors.ErrCodeSummaryWrite,
			"cannot create output directory: "+validation.SanitizeMessage(err.Error()), err)
	}

	candidate := filepath.Join(outputRoot, SummaryFileName)
	resolved, err := validation.ValidatePathTraversal(candidate, outputRoot, true)
	if err != nil {
		r.audit.RecordPathValidation(candidate, "summary", false, err.Error())
		return "", err
	}
	r.audit.RecordPathValidation(candidate, "summary", true, "")

	if err := os.WriteFile(resolved, []byte(html), summaryFileMode); err != nil {
		r.audit.RecordFileWrite(resolved, false, validation.SanitizeMessage(err.Error()))
		return "", errors.NewIOError(errors.ErrCodeSummaryWrite,
			"cannot write summary: "+validation.SanitizeMessage(err.Error()), err)
	}
	r.audit.RecordFileWrite(resolved, true, "")

	return resolved, nil
}

func (r *Renderer) templateName() string {
	if r.cfg.TemplatePath == "" {
		return "<embedded>"
	}
	return filepath.Base(r.cfg.TemplatePath)
}

// loadTemplate resolves, bounds-checks and parses the configured template.
// Validation happens strictly before the file is opened.
func (r *Renderer) loadTemplate() (*template.Template, error) {
	if r.cfg.TemplatePath == "" {
		tmpl, err := template.New("summary").Parse(r.cfg.DefaultTemplate)
		if err != nil {
			return nil, errors.NewRenderError(errors.ErrCodeTemplateInvalid,
				"default template does not parse: "+err.Error(), err)
		}
		return tmpl, nil
	}

	base := r.cfg.TemplateBase
	if base == "" {
		base = filepath.Dir(r.cfg.TemplatePath)
	}

	resolved, err := validation.ValidatePathTraversal(r.cfg.TemplatePath, base, true)
	if err != nil {
		r.audit.RecordPathValidation(r.cfg.TemplatePath, "template", false, err.Error())
		return nil, err
	}
	r.audit.RecordPathValidation(r.cfg.TemplatePath, "template", true, "")

	fi, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateNotFound,
			fmt.Sprintf("template not found: %s", filepath.Base(r.cfg.TemplatePath)), err)
	}
	if !fi.Mode().IsRegular() {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateInvalid,
			"template is not a regular file: "+filepath.Base(r.cfg.TemplatePath), nil)
	}

	if err := validation.ValidateFileSize(resolved, r.cfg.MaxTemplateSize); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateNotFound,
			"cannot read template: "+validation.SanitizeMessage(err.Error()), err)
	}

	tmpl, err := template.New(filepath.Base(resolved)).Parse(string(raw))
	if err != nil {
		return nil, errors.NewRenderError(errors.ErrCodeTemplateInvalid,
			"template does not parse: "+validation.SanitizeMessage(err.Error()), err)
	}
	return tmpl, nil
}

// buildContext folds succeeded outcomes back onto their notebooks and
// buckets them per kind, preserving the batch's item order.
func buildContext(batch *export.BatchResult, items []notebook.Notebook) Context {
	succeeded := make(map[string]bool)
	for _, o := range batch.Successes() {
		succeeded[o.SourcePath()] = true
	}

	var renderCtx Context
	for _, nb := range items {
		if !succeeded[nb.Path()] {
			continue
		}
		entry := Entry{
			DisplayName: nb.DisplayName(),
			HTMLPath:    filepath.ToSlash(nb.HTMLPath()),
			SourcePath:  nb.Path(),
			Kind:        nb.Kind().String(),
		}
		switch nb.Kind() {
		case notebook.KindNotebook:
			renderCtx.Notebooks = append(renderCtx.Notebooks, entry)
		case notebook.KindNotebookWasm:
			renderCtx.NotebooksWasm = append(renderCtx.NotebooksWasm, entry)
		case notebook.KindApp:
			renderCtx.Apps = append(renderCtx.Apps, entry)
		}
	}
	return renderCtx
}
