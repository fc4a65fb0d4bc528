package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"

	"lotpulse/internal/config"
	"lotpulse/internal/dataprocessing"
	"lotpulse/internal/exporter"
	"lotpulse/internal/files"
	"lotpulse/internal/infrastructure"
	"lotpulse/internal/validation"
	"lotpulse/pkg/contracts"
	"lotpulse/pkg/contracts/domain"
)

// Output formats
const (
	formatTable = "table"
	formatJSON  = "json"
	formatCSV   = "csv"
)

// errUsage marks flag errors; main exits with 2 for them.
var errUsage = errors.New("usage error")

type options struct {
	in         string
	platz      lotList
	unassigned bool
	asOf       string
	top        int
	format     string
	view       string
	xlsx       string
	csvDir     string
	encoding   string
	dayFirst   bool
	logLevel   string
	version    bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr, time.Now); err != nil {
		fmt.Fprintf(os.Stderr, "lotreport: %v\n", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run renders the views of one order list export. now is the clock used when
// -as-of is not given.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer, now func() time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "lotreport: config ignored: %v\n", err)
		cfg = config.Default()
	}

	opts, err := parseFlags(args, cfg, stderr)
	if err != nil {
		return err
	}
	if opts.version {
		fmt.Fprintln(stdout, contracts.GetFullVersionString())
		return nil
	}

	logger := infrastructure.NewLogger(stderr, opts.logLevel)

	today := now().In(cfg.Report.Location())
	if opts.asOf != "" {
		today, err = time.Parse(exporter.DateLayout, opts.asOf)
		if err != nil {
			return fmt.Errorf("%w: -as-of must be YYYY-MM-DD: %v", errUsage, err)
		}
	}

	if err := validateOutputs(opts, logger); err != nil {
		return err
	}

	data, err := readInput(opts.in, stdin, cfg.Ingest.MaxUploadBytes, logger)
	if err != nil {
		return err
	}

	loader := dataprocessing.NewLoader(dataprocessing.LoaderOptions{
		Encoding: opts.encoding,
		DayFirst: opts.dayFirst,
	})
	result, err := loader.Load(data, today)
	if err != nil {
		return err
	}

	logger.Debug("Input loaded",
		slog.String("file", opts.in),
		slog.String("format", result.Format),
		slog.String("fingerprint", result.Fingerprint),
		slog.Int("rows", len(result.Table.Records)))
	if len(result.MissingColumns) > 0 {
		logger.Warn("Columns missing from input", slog.Any("columns", result.MissingColumns))
	}
	for _, issue := range result.Issues {
		logger.Warn("Field could not be parsed",
			slog.Int("row", issue.Row),
			slog.String("column", issue.Column),
			slog.String("value", issue.Value),
			slog.String("reason", issue.Reason))
	}

	lots := dataprocessing.AvailableLots(result.Table.Records)
	views := dataprocessing.Aggregate(result.Table, selection(opts, lots), opts.top)

	if opts.xlsx != "" {
		records := dataprocessing.Filter(result.Table.Records, views.Selection)
		if err := exporter.NewWorkbookWriter(logger).Save(opts.xlsx, views, records); err != nil {
			return fmt.Errorf("failed to write workbook: %w", err)
		}
	}
	if opts.csvDir != "" {
		written, err := exporter.NewCSVWriter(&config.Paths{ExportsDir: opts.csvDir}, logger).ExportViews(views, "")
		if err != nil {
			return fmt.Errorf("failed to write csv files: %w", err)
		}
		logger.Info("CSV files written", slog.Int("count", len(written)), slog.String("dir", opts.csvDir))
	}

	return writeViews(stdout, views, opts, logger)
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (*options, error) {
	opts := &options{}

	fs := flag.NewFlagSet("lotreport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "order list export (csv or xlsx), a directory or glob for the newest export, - for stdin")
	fs.Var(&opts.platz, "platz", "lot to include, repeat for more lots (default: all)")
	fs.BoolVar(&opts.unassigned, "unassigned", false, "include orders without a lot")
	fs.StringVar(&opts.asOf, "as-of", "", "reference date YYYY-MM-DD for Standzeit (default: today)")
	fs.IntVar(&opts.top, "top", cfg.Report.TopN, "orders per customer in the top dwellers view")
	fs.StringVar(&opts.format, "format", formatTable, "output format: table | json | csv")
	fs.StringVar(&opts.view, "view", "", "only print this view (required for csv)")
	fs.StringVar(&opts.xlsx, "xlsx", "", "also write an xlsx workbook to this path")
	fs.StringVar(&opts.csvDir, "csv-dir", "", "also write one csv file per view into this directory")
	fs.StringVar(&opts.encoding, "encoding", cfg.Ingest.Encoding, "input encoding label, e.g. utf-8 or windows-1252")
	fs.BoolVar(&opts.dayFirst, "day-first", cfg.Ingest.DayFirst, "read ambiguous slashed dates as day/month")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	fs.BoolVar(&opts.version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if opts.version {
		return opts, nil
	}

	if opts.in == "" {
		return nil, fmt.Errorf("%w: -in is required", errUsage)
	}
	if opts.top < 1 {
		return nil, fmt.Errorf("%w: -top must be at least 1", errUsage)
	}

	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case formatTable, formatJSON:
	case formatCSV:
		if opts.view == "" {
			return nil, fmt.Errorf("%w: -format csv needs -view", errUsage)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format %q", errUsage, opts.format)
	}

	if opts.view != "" {
		if _, err := domain.ParseViewName(opts.view); err != nil {
			return nil, fmt.Errorf("%w: %v", errUsage, err)
		}
	}
	return opts, nil
}

func readInput(path string, stdin io.Reader, maxBytes int64, logger *slog.Logger) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	resolved, err := files.NewDiscovery().Resolve(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find input: %w", err)
	}
	if resolved != path {
		logger.Info("Using newest export", slog.String("pattern", path), slog.String("file", resolved))
	}

	if err := validation.NewFileValidator(logger).WithMaxSize(maxBytes).ValidateFile(resolved); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

// validateOutputs fails before any parsing when an output cannot be written
func validateOutputs(opts *options, logger *slog.Logger) error {
	v := validation.NewFileValidator(logger)
	if opts.xlsx != "" {
		if err := v.ValidateOutputFile(opts.xlsx, ".xlsx"); err != nil {
			return fmt.Errorf("invalid -xlsx: %w", err)
		}
	}
	if opts.csvDir != "" {
		if err := v.ValidateOutputDirectory(opts.csvDir); err != nil {
			return fmt.Errorf("invalid -csv-dir: %w", err)
		}
	}
	return nil
}

// lotList collects repeated -platz flags. Lot names may contain commas
// and surrounding spaces, so values are kept as given.
type lotList []string

func (l *lotList) String() string {
	if l == nil {
		return ""
	}
	return strings.Join(*l, " | ")
}

func (l *lotList) Set(v string) error {
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// selection builds the lot filter; no -platz means every available lot.
func selection(opts *options, available []string) *domain.LotSelection {
	if len(opts.platz) == 0 {
		all := domain.SelectAll(available)
		all.IncludeUnassigned = opts.unassigned
		return &all
	}

	lots := append([]string(nil), opts.platz...)
	return &domain.LotSelection{Lots: lots, IncludeUnassigned: opts.unassigned}
}

func selectedViews(opts *options) []domain.ViewName {
	if opts.view == "" {
		return domain.AllViews
	}
	return []domain.ViewName{domain.ViewName(opts.view)}
}

func writeViews(out io.Writer, views *domain.ReportViews, opts *options, logger *slog.Logger) error {
	switch opts.format {
	case formatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if opts.view != "" {
			return enc.Encode(viewData(views, domain.ViewName(opts.view)))
		}
		return enc.Encode(views)
	case formatCSV:
		return exporter.NewCSVWriter(nil, logger).WriteView(out, views, domain.ViewName(opts.view))
	default:
		return writeTables(out, views, selectedViews(opts))
	}
}

func viewData(views *domain.ReportViews, view domain.ViewName) any {
	switch view {
	case domain.ViewCategoryCounts:
		return views.CategoryCounts
	case domain.ViewDwellAverages:
		return views.DwellAverages
	case domain.ViewCustomerTotals:
		return views.CustomerTotals
	default:
		return views.TopDwellers
	}
}

func writeTables(out io.Writer, views *domain.ReportViews, names []domain.ViewName) error {
	fmt.Fprintf(out, "Stand: %s  Fahrzeuge: %d von %d  Plätze: %s\n",
		views.Today.Format(exporter.DateLayout),
		views.FilteredRecords,
		views.TotalRecords,
		strings.Join(views.Selection.Lots, ", "))

	for _, name := range names {
		fmt.Fprintf(out, "\n%s\n", name.Title())

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(exporter.ViewHeaders(name), "\t"))
		for _, row := range exporter.ViewRows(views, name) {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}
