package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/notekiln/notekiln/internal/audit"
	"github.com/notekiln/notekiln/internal/config"
	"github.com/notekiln/notekiln/internal/render"
	"github.com/notekiln/notekiln/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-export notebooks whenever sources change",
	Long: `Watch the notebook source directories and the summary template,
re-running the full export whenever a file changes. Changes arriving in a
short burst are grouped into a single export run.

Stop with Ctrl-C.`,
	RunE: runWatchCommand,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before a change triggers re-export")
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)

	auditLog, err := audit.New(cfg.Audit.Enabled, cfg.Audit.LogFile, log)
	if err != nil {
		return fmt.Errorf("cannot open audit log: %w", err)
	}
	defer auditLog.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	debounce, _ := cmd.Flags().GetDuration("debounce")
	fw, err := watcher.NewFileWatcher(debounce, log)
	if err != nil {
		return fmt.Errorf("cannot start watcher: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(func(path string) bool {
		return watcher.NotebookFilter(path) || watcher.TemplateFilter(path)
	})
	for _, dir := range []string{cfg.Notebooks, cfg.NotebooksWasm, cfg.Apps, cfg.Template} {
		if err := fw.AddPath(dir); err != nil {
			return fmt.Errorf("cannot watch %s: %w", dir, err)
		}
	}

	exportOnce := func() {
		items := discoverAll(cfg, log)
		batch := runBatch(ctx, cfg, auditLog, log, items)

		renderer := render.NewRenderer(render.RendererConfig{
			TemplatePath:    cfg.Template,
			MaxTemplateSize: cfg.MaxFileSize(),
			DefaultTemplate: defaultTemplate,
		}, auditLog, log)
		summaryPath, err := renderer.WriteSummary(batch, items, cfg.Output)
		if err != nil {
			log.Error(ctx, err, "summary write failed")
			return
		}
		printBatchReport(cmd, batch, summaryPath)
	}

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		log.Info(ctx, "change detected, re-exporting", "files", len(events))
		exportOnce()
		return nil
	})

	fw.Start(ctx)

	// Initial export before settling into the watch loop.
	exportOnce()
	fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("watching for changes, Ctrl-C to stop"))

	<-ctx.Done()
	return nil
}
