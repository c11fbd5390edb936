// Command feetax-import loads a fee sheet into the configured backend and
// prints the resulting summary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"feetax/internal/cli"
	"feetax/internal/config"
	"feetax/internal/core"
	"feetax/internal/ingest"
	"feetax/internal/log"
	"feetax/internal/sheets"
	"feetax/internal/sheets/file"
	"feetax/internal/sheets/xlsx"
	"feetax/internal/store"
)

func main() {
	path := flag.String("file", "", "path to an .xlsx or .csv fee sheet")
	fromSheets := flag.Bool("sheets", false, "import from the configured Google spreadsheet instead of a file")
	bucketing := flag.String("bucketing", "", "override TIME_BUCKETING (proportional or calendar)")
	outDir := flag.String("out", "", "also write the processed workbook into this directory")
	flag.Parse()

	cfg, logger := cli.Bootstrap("feetax-import")
	if *bucketing != "" {
		cfg.TimeBucketing = *bucketing
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid bucketing", log.FieldError, err)
		os.Exit(2)
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := run(ctx, cfg, logger, *path, *fromSheets, *outDir, os.Stdout); err != nil {
		logger.Error("Import failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, path string, fromSheets bool, outDir string, out io.Writer) error {
	src, err := openSource(ctx, cfg, logger, path, fromSheets)
	if err != nil {
		return err
	}

	repo, err := cli.OpenRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	st := store.New(store.WithPersister(repo), store.WithBucketing(cfg.Bucketing()), store.WithLogger(logger))
	if err := st.Load(ctx); err != nil {
		return err
	}
	res, err := st.Upload(ctx, src)
	if err != nil {
		return err
	}
	snap := st.Snapshot()
	printReport(out, res, snap)

	if outDir == "" || !snap.HasData() {
		return nil
	}
	exp := &xlsx.Exporter{Dir: outDir}
	written, err := exp.ExportRecords(ctx, snap.Records)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nWrote %s\n", written)
	return nil
}

func openSource(ctx context.Context, cfg *config.Config, logger *log.Logger, path string, fromSheets bool) (sheets.RowReader, error) {
	if fromSheets {
		c, err := cli.OpenSheets(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errors.New("-sheets needs GOOGLE_SPREADSHEET_ID")
		}
		return c, nil
	}
	if path == "" {
		return nil, errors.New("either -file or -sheets is required")
	}
	return file.Open(path)
}

func printReport(out io.Writer, res ingest.Result, st store.State) {
	sym := st.Settings.CurrencySymbol
	fmt.Fprintf(out, "Batch %s: %d rows, %d accepted, %d rejected\n", res.BatchID, res.TotalRows, res.Accepted(), res.Rejected())
	for _, e := range res.Errors {
		fmt.Fprintf(out, "  %s\n", e.Error())
	}
	if st.Summary == nil {
		return
	}
	s := st.Summary
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "\nStudents\t%d\n", s.TotalStudents)
	fmt.Fprintf(tw, "Total amount\t%s\n", core.FormatMoney(sym, s.TotalAmount))
	fmt.Fprintf(tw, "Total tax\t%s\n", core.FormatMoney(sym, s.TotalTax))
	fmt.Fprintf(tw, "Total net\t%s\n", core.FormatMoney(sym, s.TotalNet))
	fmt.Fprintf(tw, "Average tax\t%s\n", core.FormatMoney(sym, s.AvgTax))
	fmt.Fprintf(tw, "\nMonth\tFees\tTax\n")
	for _, m := range s.ByMonth {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Month, core.FormatMoney(sym, m.Fees), core.FormatMoney(sym, m.Tax))
	}
	_ = tw.Flush()
}
