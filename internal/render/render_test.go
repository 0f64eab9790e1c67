package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notekiln/notekiln/internal/audit"
	"github.com/notekiln/notekiln/internal/errors"
	"github.com/notekiln/notekiln/internal/export"
	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/notebook"
)

const testTemplate = `<!DOCTYPE html>
<html><body>
<h2>Notebooks</h2>
<ul>{{range .Notebooks}}<li><a href="{{.HTMLPath}}">{{.DisplayName}}</a></li>{{end}}</ul>
<h2>WebAssembly</h2>
<ul>{{range .NotebooksWasm}}<li><a href="{{.HTMLPath}}">{{.DisplayName}}</a></li>{{end}}</ul>
<h2>Apps</h2>
<ul>{{range .Apps}}<li><a href="{{.HTMLPath}}">{{.DisplayName}}</a></li>{{end}}</ul>
</body></html>
`

func testNotebook(t *testing.T, dir, name string, kind notebook.Kind) notebook.Notebook {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("import marimo\n"), 0o644))
	nb, err := notebook.New(path, kind)
	require.NoError(t, err)
	return nb
}

func newTestRenderer(t *testing.T, cfg RendererConfig) *Renderer {
	t.Helper()
	if cfg.TemplatePath == "" && cfg.DefaultTemplate == "" {
		cfg.DefaultTemplate = testTemplate
	}
	return NewRenderer(cfg, audit.NewDisabled(logging.NewTestLogger()), logging.NewTestLogger())
}

func TestRenderEmptyBatch(t *testing.T) {
	r := newTestRenderer(t, RendererConfig{})

	html, err := r.Render(export.NewBatchResult(), nil)
	require.NoError(t, err)

	assert.Contains(t, html, "<h2>Notebooks</h2>")
	assert.Contains(t, html, "<h2>Apps</h2>")
	assert.NotContains(t, html, "<li>")
}

func TestRenderBucketsByKind(t *testing.T) {
	dir := t.TempDir()
	nb := testNotebook(t, dir, "data_report.py", notebook.KindNotebook)
	wasm := testNotebook(t, dir, "playground.py", notebook.KindNotebookWasm)
	app := testNotebook(t, dir, "dashboard.py", notebook.KindApp)

	batch := export.NewBatchResult()
	batch.Add(export.Succeeded(nb.Path(), "unused"))
	batch.Add(export.Succeeded(wasm.Path(), "unused"))
	batch.Add(export.Succeeded(app.Path(), "unused"))

	r := newTestRenderer(t, RendererConfig{})
	html, err := r.Render(batch, []notebook.Notebook{nb, wasm, app})
	require.NoError(t, err)

	assert.Contains(t, html, `href="notebooks/data_report.html"`)
	assert.Contains(t, html, `href="notebooks_wasm/playground.html"`)
	assert.Contains(t, html, `href="apps/dashboard.html"`)
	assert.Contains(t, html, "data report")
}

func TestRenderExcludesFailedItems(t *testing.T) {
	dir := t.TempDir()
	good := testNotebook(t, dir, "good.py", notebook.KindNotebook)
	bad := testNotebook(t, dir, "bad.py", notebook.KindNotebook)

	batch := export.NewBatchResult()
	batch.Add(export.Succeeded(good.Path(), "unused"))
	batch.Add(export.Failed(bad.Path(), "converter exited with status 1"))

	r := newTestRenderer(t, RendererConfig{})
	html, err := r.Render(batch, []notebook.Notebook{good, bad})
	require.NoError(t, err)

	assert.Contains(t, html, "good.html")
	assert.NotContains(t, html, "bad.html")
}

func TestRenderEscapesHostileNames(t *testing.T) {
	dir := t.TempDir()
	nb := testNotebook(t, dir, "x<script>alert(1)<_script>.py", notebook.KindNotebook)

	batch := export.NewBatchResult()
	batch.Add(export.Succeeded(nb.Path(), "unused"))

	r := newTestRenderer(t, RendererConfig{})
	html, err := r.Render(batch, []notebook.Notebook{nb})
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderTemplateOutsideBaseRejected(t *testing.T) {
	permitted := t.TempDir()
	elsewhere := t.TempDir()
	outside := filepath.Join(elsewhere, "evil.html.tmpl")
	require.NoError(t, os.WriteFile(outside, []byte(testTemplate), 0o644))

	r := newTestRenderer(t, RendererConfig{
		TemplatePath: filepath.Join(permitted, "..", filepath.Base(elsewhere), "evil.html.tmpl"),
		TemplateBase: permitted,
	})

	_, err := r.Render(export.NewBatchResult(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsSecurityError(err))
}

func TestRenderTemplateTooLargeRejected(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.html.tmpl")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("a", 2048)), 0o644))

	r := newTestRenderer(t, RendererConfig{
		TemplatePath:    big,
		TemplateBase:    dir,
		MaxTemplateSize: 1024,
	})

	_, err := r.Render(export.NewBatchResult(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestRenderTemplateNotFound(t *testing.T) {
	dir := t.TempDir()
	r := newTestRenderer(t, RendererConfig{
		TemplatePath: filepath.Join(dir, "missing.html.tmpl"),
		TemplateBase: dir,
	})

	_, err := r.Render(export.NewBatchResult(), nil)
	require.Error(t, err)

	var kerr *errors.KilnError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, kerr.Code)
}

func TestRenderTemplateParseError(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.html.tmpl")
	require.NoError(t, os.WriteFile(broken, []byte(`{{range .Notebooks}`), 0o644))

	r := newTestRenderer(t, RendererConfig{TemplatePath: broken, TemplateBase: dir})

	_, err := r.Render(export.NewBatchResult(), nil)
	require.Error(t, err)

	var kerr *errors.KilnError
	require.ErrorAs(t, err, &kerr)
	assert.Equal(t, errors.ErrCodeTemplateInvalid, kerr.Code)
}

func TestWriteSummary(t *testing.T) {
	outputRoot := filepath.Join(t.TempDir(), "site")
	r := newTestRenderer(t, RendererConfig{})

	path, err := r.WriteSummary(export.NewBatchResult(), nil, outputRoot)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outputRoot, SummaryFileName), path)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), fi.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<h2>Notebooks</h2>")
}

func TestWriteSummaryEmitsAuditEvents(t *testing.T) {
	var sb strings.Builder
	auditLog := audit.NewWithSink(&sb, logging.NewTestLogger())
	r := NewRenderer(RendererConfig{DefaultTemplate: testTemplate}, auditLog, logging.NewTestLogger())

	_, err := r.WriteSummary(export.NewBatchResult(), nil, t.TempDir())
	require.NoError(t, err)

	events := sb.String()
	assert.Contains(t, events, string(audit.EventTemplateRender))
	assert.Contains(t, events, string(audit.EventFileWrite))
}
