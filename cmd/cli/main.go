package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerflow/importd/internal/archive"
	"github.com/ledgerflow/importd/internal/config"
	"github.com/ledgerflow/importd/internal/csvmap"
	"github.com/ledgerflow/importd/internal/engine"
	"github.com/ledgerflow/importd/internal/importer"
	"github.com/ledgerflow/importd/internal/jobs"
	"github.com/ledgerflow/importd/internal/jobs/inmemory"
	"github.com/ledgerflow/importd/internal/logger"
	"github.com/ledgerflow/importd/internal/notion"
	"github.com/ledgerflow/importd/internal/poller"
	"github.com/ledgerflow/importd/internal/review"
	"github.com/ledgerflow/importd/internal/session"
	"github.com/ledgerflow/importd/internal/suggest"
	"github.com/ledgerflow/importd/internal/tags"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "check":
		runCheck(log)
	case "import":
		runImport(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Import CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  check     Detect columns and validate a statement CSV without importing")
	fmt.Println("  import    Run a headless end-to-end import of a statement CSV")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// runCheck parses and validates a CSV, printing the detected column map and
// any row errors. Nothing is written anywhere.
func runCheck(log zerolog.Logger) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement CSV")
	account := fs.String("account", "", "Account name to record on each row")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}

	headers, rows, cm := loadStatement(*file, log)

	fmt.Printf("Headers: %v\n", headers)
	fmt.Printf("Detected columns: date=%q description=%q amount=%q location=%q\n",
		cm.Date, cm.Description, cm.Amount, cm.Location)

	result := csvmap.ValidateAllRows(rows, cm, *account)
	if !result.Valid {
		fmt.Printf("Validation failed with %d error(s):\n", result.ErrorCount)
		for _, e := range result.Errors {
			fmt.Println("  " + e)
		}
		os.Exit(1)
	}

	fmt.Printf("All %d rows valid.\n", len(result.Parsed))
}

// runImport runs the whole flow in one process: validate, run the processing
// job, auto-accept resolvable AI suggestions, confirm matched rows with
// their suggested tags, then run the write job. Rows needing manual review
// are reported and left out.
func runImport(cfg *config.AppConfig, log zerolog.Logger) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	file := fs.String("file", "", "Path to the statement CSV")
	account := fs.String("account", "", "Account name to record on each row")
	dryRun := fs.Bool("dry-run", false, "Stop after processing; write nothing")
	force := fs.Bool("force", false, "Continue past critical processing warnings")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: --file is required")
	}
	if cfg.NotionToken == "" {
		log.Fatal().Msg("NOTION_TOKEN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	headers, rows, cm := loadStatement(*file, log)

	// The wizard state the interactive UI would hold; the CLI walks the same
	// steps headlessly.
	wizard := session.NewStore()
	wizard.SetFile(filepath.Base(*file), headers, rows)
	wizard.SetColumnMap(cm)
	wizard.NextStep()

	result := csvmap.ValidateAllRows(rows, cm, *account)
	if !result.Valid {
		for _, e := range result.Errors {
			fmt.Fprintln(os.Stderr, e)
		}
		log.Fatal().Int("errors", result.ErrorCount).Msg("Statement failed validation")
	}
	wizard.SetParsed(*account, result.Parsed)
	wizard.NextStep()

	client := notion.NewClient(cfg.NotionToken)
	directory := notion.NewDirectory(client, cfg.NotionEntitiesDBID, cfg.NotionTransactionsDBID)

	opts := engine.Options{
		Deduplicate: cfg.DeduplicationEnabled,
		BatchSize:   cfg.WriteBatchSize,
	}
	if cfg.GeminiModel != "" {
		opts.Suggester = suggest.NewGeminiSuggester(cfg.GeminiModel)
	}
	if cfg.ArchiveBucket != "" {
		opts.Archiver = archive.NewGCSArchiver(cfg.ArchiveBucket)
	}
	eng := engine.New(directory, opts, log)

	jobStore := inmemory.NewStore()
	progressStore := inmemory.NewProgressStore()
	queue := inmemory.NewQueue(10, 1, jobStore)
	defer queue.Close()

	go func() {
		if err := queue.Start(ctx, eng.Handler(progressStore)); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	// Processing job
	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot re-read statement for archiving")
	}
	processJob := &jobs.ImportJob{
		Kind:     jobs.JobKindProcess,
		Account:  *account,
		Parsed:   result.Parsed,
		FileName: filepath.Base(*file),
		Raw:      raw,
	}
	if err := queue.Publish(ctx, processJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to enqueue processing job")
	}
	wizard.SetProcessSession(processJob.SessionID)

	watch := poller.New(progressStore, cfg.PollInterval, log)
	snap, err := watch.Wait(ctx, processJob.SessionID, progressUpdate)
	if err != nil {
		log.Fatal().Err(err).Msg("Processing did not finish")
	}
	if snap.Status == importer.ProgressFailed || snap.ProcessResult == nil {
		log.Fatal().Str("error", snap.Error).Msg("Processing job failed")
	}

	wizard.SetProcessResult(snap.ProcessResult)
	wizard.NextStep()

	processResult := *snap.ProcessResult
	printWarnings(processResult.Warnings)
	if importer.HasCritical(processResult.Warnings) && !*force {
		log.Fatal().Msg("Critical warnings reported; rerun with --force to import anyway")
	}
	fmt.Printf("Processed %d rows: %d matched, %d uncertain, %d failed, %d skipped\n",
		processResult.Total(), len(processResult.Matched), len(processResult.Uncertain),
		len(processResult.Failed), len(processResult.Skipped))

	// Accept every suggestion whose entity already exists; the rest stay
	// behind for the interactive review UI.
	reviewer := review.New(processResult, log)
	state := reviewer.Snapshot()
	for _, tx := range state.Uncertain {
		if tx.Entity == nil || !tx.Entity.Resolvable() {
			continue
		}
		if _, err := reviewer.Dispatch(review.AcceptSuggestion{Checksum: tx.Checksum}); err != nil {
			log.Warn().Err(err).Str("checksum", tx.Checksum).Msg("Could not accept suggestion")
		}
	}

	state = reviewer.Snapshot()
	if n := state.Unresolved(); n > 0 {
		fmt.Printf("%d row(s) need manual review and will not be imported.\n", n)
	}

	editor := tags.NewEditor(state.Matched, nil)
	confirmed := make([]importer.ConfirmedTransaction, 0, len(state.Matched))
	for _, tx := range state.Matched {
		c, err := tx.Confirm(editor.Tags(tx.Checksum))
		if err != nil {
			log.Warn().Err(err).Str("checksum", tx.Checksum).Msg("Skipping unconfirmable row")
			continue
		}
		confirmed = append(confirmed, c)
	}
	wizard.SetConfirmed(confirmed)
	wizard.NextStep()

	if *dryRun {
		fmt.Printf("Dry run: %d row(s) ready to import.\n", len(confirmed))
		return
	}
	if len(confirmed) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	// Write job
	executeJob := &jobs.ImportJob{
		Kind:      jobs.JobKindExecute,
		Account:   *account,
		Confirmed: confirmed,
	}
	if err := queue.Publish(ctx, executeJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to enqueue execute job")
	}
	wizard.SetExecuteSession(executeJob.SessionID)

	snap, err = watch.Wait(ctx, executeJob.SessionID, progressUpdate)
	if err != nil {
		log.Fatal().Err(err).Msg("Import did not finish")
	}
	if snap.Status == importer.ProgressFailed || snap.ImportResult == nil {
		log.Fatal().Str("error", snap.Error).Msg("Import job failed")
	}

	wizard.SetImportResult(snap.ImportResult)
	wizard.NextStep()

	printWarnings(snap.ImportResult.Warnings)
	for _, e := range snap.ImportResult.Errors {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", e.Description, e.Error)
	}
	fmt.Printf("Imported %d row(s), %d failed.\n", snap.ImportResult.Imported, snap.ImportResult.Failed)
}

func loadStatement(path string, log zerolog.Logger) ([]string, []csvmap.Record, csvmap.ColumnMap) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("Cannot open statement")
	}
	defer f.Close()

	headers, rows, err := csvmap.ReadRecords(f)
	if err != nil {
		log.Fatal().Err(err).Str("file", filepath.Base(path)).Msg("Cannot read statement")
	}

	return headers, rows, csvmap.DetectColumns(headers)
}

func progressUpdate(p importer.Progress) {
	fmt.Printf("\r%s: %d/%d", p.CurrentStep, p.ProcessedCount, p.TotalTransactions)
	if p.Status.Terminal() {
		fmt.Println()
	}
}

func printWarnings(warnings []importer.Warning) {
	for _, w := range warnings {
		if w.Code.Critical() {
			fmt.Fprintf(os.Stderr, "WARNING [%s]: %s\n", w.Code, w.Message)
		} else {
			fmt.Printf("Note [%s]: %s\n", w.Code, w.Message)
		}
	}
}
