package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/notekiln/notekiln/internal/audit"
	"github.com/notekiln/notekiln/internal/config"
	"github.com/notekiln/notekiln/internal/export"
	"github.com/notekiln/notekiln/internal/logging"
	"github.com/notekiln/notekiln/internal/notebook"
	"github.com/notekiln/notekiln/internal/render"
)

//go:embed templates/default.html.tmpl
var defaultTemplate string

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export notebooks and write the index page",
	Long: `Export every discovered notebook to HTML and write an index.html
summary into the output directory.

Notebooks that fail to export are reported and skipped; the index is written
regardless, listing only the successful exports. An empty project produces an
index with empty sections.

Examples:
  notekiln export                          # Defaults from .notekiln.yml
  notekiln export --output public          # Custom output directory
  notekiln export --parallel --max-workers 8
  notekiln export --template custom.html.tmpl`,
	RunE: runExportCommand,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "_site", "output directory for exported files")
	exportCmd.Flags().String("template", "", "summary template file (embedded default if unset)")
	exportCmd.Flags().String("notebooks", "notebooks", "directory scanned for static notebook exports")
	exportCmd.Flags().String("apps", "apps", "directory scanned for WebAssembly app exports")
	exportCmd.Flags().String("notebooks-wasm", "notebooks_wasm", "directory scanned for editable WebAssembly exports")
	exportCmd.Flags().Bool("sandbox", true, "run the converter in an isolated environment")
	exportCmd.Flags().Bool("parallel", false, "export notebooks concurrently")
	exportCmd.Flags().Int("max-workers", 4, "worker count for parallel export (clamped to 1-16)")
	exportCmd.Flags().Duration("timeout", export.DefaultTimeout, "per-notebook export timeout")
	exportCmd.Flags().String("bin-path", "", "directory containing the uvx executable")
	exportCmd.Flags().Bool("audit", false, "write JSON Lines audit events")
	exportCmd.Flags().String("audit-log", ".notekiln-audit.log", "audit log file")

	bindExportFlags(exportCmd.Flags())
}

// bindExportFlags maps flag names onto their config keys so flags override
// file and environment values.
func bindExportFlags(fs *pflag.FlagSet) {
	for key, flag := range map[string]string{
		"output":         "output",
		"template":       "template",
		"notebooks":      "notebooks",
		"apps":           "apps",
		"notebooks_wasm": "notebooks-wasm",
		"sandbox":        "sandbox",
		"parallel":       "parallel",
		"max_workers":    "max-workers",
		"timeout":        "timeout",
		"bin_path":       "bin-path",
		"audit.enabled":  "audit",
		"audit.log_file": "audit-log",
	} {
		viper.BindPFlag(key, fs.Lookup(flag))
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// discoverAll scans the three kind directories and returns one combined,
// deterministic work list.
func discoverAll(cfg *config.Config, log logging.Logger) []notebook.Notebook {
	var items []notebook.Notebook
	items = append(items, notebook.Discover(cfg.Notebooks, notebook.KindNotebook, log)...)
	items = append(items, notebook.Discover(cfg.NotebooksWasm, notebook.KindNotebookWasm, log)...)
	items = append(items, notebook.Discover(cfg.Apps, notebook.KindApp, log)...)
	return items
}

func runExportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	auditLog, err := audit.New(cfg.Audit.Enabled, cfg.Audit.LogFile, log)
	if err != nil {
		return fmt.Errorf("cannot open audit log: %w", err)
	}
	defer auditLog.Close()

	items := discoverAll(cfg, log)
	log.Info(ctx, "discovered notebooks", "count", len(items))

	batch := runBatch(ctx, cfg, auditLog, log, items)

	renderer := render.NewRenderer(render.RendererConfig{
		TemplatePath:    cfg.Template,
		MaxTemplateSize: cfg.MaxFileSize(),
		DefaultTemplate: defaultTemplate,
	}, auditLog, log)

	summaryPath, err := renderer.WriteSummary(batch, items, cfg.Output)
	if err != nil {
		return fmt.Errorf("cannot write summary: %w", err)
	}

	printBatchReport(cmd, batch, summaryPath)

	// Partial failure is reported, not fatal; the site was still built.
	return nil
}

func runBatch(ctx context.Context, cfg *config.Config, auditLog *audit.Logger, log logging.Logger, items []notebook.Notebook) *export.BatchResult {
	executor := export.NewExecutor(export.ExecutorConfig{
		BinPath: cfg.BinPath,
		Sandbox: cfg.Sandbox,
		Timeout: cfg.Timeout,
	}, auditLog, log)

	mode := export.ModeSequential
	if cfg.Parallel {
		mode = export.ModeParallel
	}
	orch := export.NewOrchestrator(executor, mode, cfg.MaxWorkers, log)

	var mu sync.Mutex
	progress := func(completed, total int, name string) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(os.Stderr, "%s %s\n",
			dimStyle.Render(fmt.Sprintf("[%d/%d]", completed, total)), name)
	}

	return orch.RunBatch(ctx, items, cfg.Output, progress)
}

func printBatchReport(cmd *cobra.Command, batch *export.BatchResult, summaryPath string) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, headingStyle.Render("Export complete"))
	line := fmt.Sprintf("%d/%d notebooks exported", batch.SucceededCount(), batch.Total())
	if batch.AllSucceeded() {
		fmt.Fprintln(out, okStyle.Render(line))
	} else {
		fmt.Fprintln(out, failStyle.Render(line))
		for _, f := range batch.Failures() {
			fmt.Fprintf(out, "  %s %s: %s\n",
				failStyle.Render("✗"), filepath.Base(f.SourcePath()), f.FailureDetail())
		}
	}
	fmt.Fprintln(out, dimStyle.Render("index written to "+summaryPath))
}
