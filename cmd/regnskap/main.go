package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"regnskap/internal/aggregate"
	"regnskap/internal/backend"
	"regnskap/internal/classify"
	"regnskap/internal/cli"
	"regnskap/internal/config"
	"regnskap/internal/core"
	"regnskap/internal/ingest"
	"regnskap/internal/log"
	"regnskap/internal/prompt"
	"regnskap/internal/report"
	"regnskap/internal/resolve"
	"regnskap/internal/services"
)

const usage = `Usage: regnskap <command> [flags]

Commands:
  process <csv>   classify, resolve and aggregate a statement, then print, export and save it
  import <csv>... like process, but merge one or more statements into the stored period
  print           print a stored period
  export          export a stored period to the configured spreadsheets and charts
  income <csv>    list the income lines of a statement
  periods         list stored periods and where each has been exported
`

func main() {
	cli.LoadEnvFile()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, os.Stderr)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdin, os.Stdout, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		stop()
		cli.Fatal(logger, os.Args[1]+" failed", err)
	}
}

type app struct {
	cfg      *config.Config
	settings *config.Settings
	logger   *log.Logger
	stdin    io.Reader
	stdout   io.Writer
	printer  *report.Printer

	classifier *classify.Classifier
	service  *services.AccountingService
	exporter *services.Exporter
	cleanup  backend.CleanupFunc
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, stdin io.Reader, stdout io.Writer, cmd string, args []string) error {
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		fmt.Fprint(stdout, usage)
		return nil
	}
	switch cmd {
	case "process", "import", "print", "export", "income", "periods":
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	settings, err := cli.LoadSettings(cfg, logger)
	if err != nil {
		return err
	}

	useColor := false
	if f, ok := stdout.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd())
	}
	a := &app{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
		stdin:    stdin,
		stdout:   stdout,
		printer:  report.NewPrinter(stdout, settings.Currency, useColor),
	}
	if err := a.wire(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.cleanup(); err != nil {
			logger.Warn("Cleanup failed", log.FieldError, err)
		}
	}()

	switch cmd {
	case "process":
		return a.process(ctx, args, false)
	case "import":
		return a.process(ctx, args, true)
	case "print":
		return a.print(ctx, args)
	case "export":
		return a.export(ctx, args)
	case "income":
		return a.income(args)
	default:
		return a.periods(ctx)
	}
}

func (a *app) wire(ctx context.Context) error {
	classifier, err := a.settings.Classifier(a.logger)
	if err != nil {
		return err
	}

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	bcfg.ChartCurrency = a.settings.Currency
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}

	console := prompt.New(a.stdin, a.stdout, a.settings.Prompt)
	balance, rate := cli.NewProviders(a.cfg, a.logger)
	aggregator := aggregate.New(balance, rate, resolve.NewCommitmentCalculator(console, a.logger), aggregate.Options{
		SkipPatterns:         classifier.Skip(),
		CommitmentCategories: a.settings.CommitmentCategories,
		Holdings:             a.settings.Holdings.Decimal,
		FallbackRate:         a.settings.FallbackExchangeRate.Decimal,
		ProviderTimeout:      a.cfg.ProviderTimeout,
	}, a.logger)

	a.service = services.NewAccountingService(services.Dependencies{
		Classifier: classifier,
		Resolver:   resolve.NewResolver(console, a.logger),
		Aggregator: aggregator,
		Store:      res.Store,
		Publisher:  res.Publisher,
	}, a.logger)

	ecfg := services.DefaultExporterConfig()
	ecfg.WriteOrder = a.settings.WriteOrder
	a.exporter = services.NewExporter(res.Destinations, ecfg, a.logger)
	a.classifier = classifier
	a.cleanup = res.Cleanup
	return nil
}

// readStatements parses the flags and reads every statement file named
// after them. Only import accepts more than one.
func (a *app) readStatements(fs *flag.FlagSet, args []string, many bool) ([][]core.Transaction, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 || (!many && fs.NArg() != 1) {
		return nil, fmt.Errorf("%s: expected one statement file, got %d arguments", fs.Name(), fs.NArg())
	}
	statements := make([][]core.Transaction, 0, fs.NArg())
	for _, path := range fs.Args() {
		txs, err := ingest.ReadSbankenFile(path)
		if err != nil {
			return nil, err
		}
		statements = append(statements, txs)
	}
	return statements, nil
}

func (a *app) process(ctx context.Context, args []string, merge bool) error {
	name := "process"
	if merge {
		name = "import"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	period := fs.String("save-period", "", "store under this YYYY-MM instead of the statement's month")
	noSave := fs.Bool("no-save", false, "do not store the results")
	noExport := fs.Bool("no-export", false, "do not export the spreadsheet row")
	verbose := fs.Bool("transactions", false, "print every categorized transaction")

	statements, err := a.readStatements(fs, args, merge)
	if err != nil {
		return err
	}

	rec, err := a.service.ProcessAll(ctx, statements)
	if err != nil {
		return err
	}

	if !*noSave {
		if merge {
			rec, err = a.service.Import(ctx, *period, rec)
		} else {
			rec, err = a.service.Save(ctx, *period, rec)
		}
		if err != nil {
			return err
		}
	}

	var income []core.Transaction
	for _, txs := range statements {
		income = append(income, aggregate.IncomeTransactions(txs, a.classifier.Skip())...)
	}
	a.printer.PrintIncome(income)
	if *verbose {
		a.printer.PrintCategories(rec.Categories)
	}
	a.printer.PrintResults(rec)

	if *noExport {
		return nil
	}
	return a.exportRecord(ctx, rec)
}

func (a *app) print(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	period := fs.String("period", "", "YYYY-MM to print, latest when empty")
	verbose := fs.Bool("transactions", false, "print every categorized transaction")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := a.service.Load(ctx, *period)
	if err != nil {
		return err
	}
	if *verbose {
		a.printer.PrintCategories(rec.Categories)
	}
	a.printer.PrintResults(rec)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	period := fs.String("period", "", "YYYY-MM to export, latest when empty")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rec, err := a.service.Load(ctx, *period)
	if err != nil {
		return err
	}
	return a.exportRecord(ctx, rec)
}

func (a *app) exportRecord(ctx context.Context, rec core.ResultsRecord) error {
	if a.exporter.Len() == 0 {
		a.logger.Info("No export destinations configured")
		return nil
	}
	results, err := a.exporter.Export(ctx, rec)
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(a.stdout, "Exported to %s: %s\n", r.Name, r.Ref)
		}
	}
	return err
}

func (a *app) income(args []string) error {
	fs := flag.NewFlagSet("income", flag.ContinueOnError)
	statements, err := a.readStatements(fs, args, false)
	if err != nil {
		return err
	}
	txs := statements[0]
	if err := ingest.Validate(txs); err != nil {
		return err
	}
	a.printer.PrintIncome(aggregate.IncomeTransactions(txs, a.classifier.Skip()))
	return nil
}

func (a *app) periods(ctx context.Context) error {
	periods, err := a.service.Periods(ctx)
	if err != nil {
		return err
	}
	a.printer.PrintPeriods(periods, a.exporter.Periods(ctx))
	return nil
}
