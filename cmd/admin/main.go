package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pawnlend/docverify/internal/bootstrap"
	"github.com/pawnlend/docverify/internal/config"
	"github.com/pawnlend/docverify/internal/core/domain"
	"github.com/pawnlend/docverify/internal/core/ports"
	"github.com/pawnlend/docverify/internal/observability/logging"
)

const usage = `usage: admin <command> [flags]

commands:
  ingest     submit a document for analysis
  status     show document status
  results    show extraction and assessment for a document
  reanalyze  discard results and re-queue a document at urgent priority
  batch      synchronously re-analyze a set of documents
  snapshot   list queue entries in scheduling order
  stats      show queue statistics
  export     write the manual-review XLSX report
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger("docverify-admin", cfg.LogLevel)
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	if err := run(ctx, app, os.Args[1], os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, app *bootstrap.App, command string, args []string) error {
	switch command {
	case "ingest":
		return runIngest(ctx, app, args)
	case "status":
		return runStatus(ctx, app, args)
	case "results":
		return runResults(ctx, app, args)
	case "reanalyze":
		return runReanalyze(ctx, app, args)
	case "batch":
		return runBatch(ctx, app, args)
	case "snapshot":
		return runSnapshot(ctx, app)
	case "stats":
		return runStats(ctx, app)
	case "export":
		return runExport(ctx, app, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func runIngest(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := fs.String("file", "", "path to the document file")
	submission := fs.String("submission", "", "submission id")
	uploader := fs.String("uploader", "", "uploader id")
	category := fs.String("category", string(domain.CategoryOther), "document category")
	priority := fs.Int("priority", domain.PriorityNormal, "queue priority")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read input file: %w", err)
	}

	doc, err := app.IngestUC.Ingest(ctx, ports.IngestRequest{
		Data:         data,
		Filename:     filepath.Base(*file),
		SubmissionID: *submission,
		UploaderID:   *uploader,
		Category:     domain.DocumentCategory(*category),
		Priority:     *priority,
	})
	if err != nil {
		return err
	}

	fmt.Printf("accepted document %s (estimated processing time %s)\n", doc.ID, domain.EstimatedProcessingTime(doc.Priority))
	return nil
}

func runStatus(ctx context.Context, app *bootstrap.App, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	view, err := app.AnalysisUC.GetStatus(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(view)
}

func runResults(ctx context.Context, app *bootstrap.App, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	results, err := app.AnalysisUC.GetResults(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runReanalyze(ctx context.Context, app *bootstrap.App, args []string) error {
	id, err := singleID(args)
	if err != nil {
		return err
	}
	if err := app.AnalysisUC.Reanalyze(ctx, id); err != nil {
		return err
	}
	fmt.Printf("document %s re-queued\n", id)
	return nil
}

func runBatch(ctx context.Context, app *bootstrap.App, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("at least one document id is required")
	}
	result, err := app.AnalysisUC.BatchAnalyze(ctx, args)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runSnapshot(ctx context.Context, app *bootstrap.App) error {
	entries, err := app.AnalysisUC.QueueSnapshot(ctx)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runStats(ctx context.Context, app *bootstrap.App) error {
	stats, err := app.AnalysisUC.Statistics(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runExport(ctx context.Context, app *bootstrap.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "manual_review.xlsx", "output file path")
	limit := fs.Int("limit", 100, "maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	workbook, err := app.ExportSvc.ManualReviewXLSX(ctx, *limit)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, workbook, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Printf("wrote %s\n", *out)
	return nil
}

func singleID(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("exactly one document id is required")
	}
	return args[0], nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
