package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"dashboard/internal/auth"
	"dashboard/internal/config"
	"dashboard/internal/domain"
	"dashboard/internal/drive"
	"dashboard/internal/excel"
	"dashboard/internal/logging"
	"dashboard/internal/service"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

type options struct {
	filePath    string
	tokenPath   string
	fileID      string
	ordersSheet string
	month       string
	item        string
	preset      string
	chartsDir   string
	asJSON      bool
}

func main() {
	opts := parseFlags()

	logger, err := logging.New(os.Getenv("LOG_LEVEL"), "development")
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	layout := excel.DefaultLayout()
	if opts.ordersSheet != "" {
		layout.OrdersSheet = opts.ordersSheet
	}

	ctx := context.Background()
	var data []byte
	if opts.filePath != "" {
		data, err = readWorkbook(opts.filePath)
	} else {
		data, err = download(ctx, opts, logger, &layout)
	}
	if err != nil {
		logger.Fatal("load workbook", zap.String("kind", domain.ErrorKind(err)), zap.Error(err))
	}

	book, err := excel.ParseWorkbook(data, layout)
	if err != nil {
		logger.Fatal("parse workbook", zap.Error(err))
	}
	if book.CustomersErr != nil {
		logger.Info("customers sheet unavailable, totals computed from orders", zap.Error(book.CustomersErr))
	}

	now := time.Now()
	snapshot, err := service.BuildSnapshot(book, now)
	if err != nil {
		logger.Fatal("build snapshot", zap.Error(err))
	}
	view, err := service.BuildView(snapshot, domain.DashboardFilters{
		Month:           opts.month,
		Item:            opts.item,
		DateRangePreset: opts.preset,
	}, now)
	if err != nil {
		logger.Fatal("build view", zap.Error(err))
	}

	if opts.chartsDir != "" {
		if err := writeCharts(opts.chartsDir, view); err != nil {
			logger.Fatal("write charts", zap.Error(err))
		}
	}

	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(map[string]any{
			"sheet":        book.SheetName,
			"orders":       len(snapshot.Orders),
			"dropped_rows": book.DroppedRows,
			"months":       snapshot.Months,
			"summary":      snapshot.Summary,
			"top_items":    snapshot.TopItems,
			"customers":    snapshot.Customers,
			"month": map[string]any{
				"label":             view.SelectedMonth,
				"orders":            view.TotalOrdersMonth,
				"sales":             view.TotalSalesMonth,
				"most_ordered_item": view.MostOrderedItem,
			},
			"item":       map[string]any{"name": view.SelectedItem, "detail": view.ItemDetail},
			"date_range": map[string]string{"preset": view.DateRangePreset, "start": view.StartDate, "end": view.EndDate},
		}); err != nil {
			logger.Fatal("encode output", zap.Error(err))
		}
		return
	}
	printReport(os.Stdout, book, snapshot, view)
}

func parseFlags() options {
	var opts options
	flag.StringVar(
		&opts.filePath,
		"file",
		"",
		"path to a locally exported orders workbook (.xlsx)",
	)
	flag.StringVar(
		&opts.tokenPath,
		"token",
		"",
		"path to a JSON OAuth token (access/refresh) used to download the workbook from Drive",
	)
	flag.StringVar(
		&opts.fileID,
		"drive-file",
		"",
		"Drive file id; defaults to DRIVE_FILE_ID",
	)
	flag.StringVar(
		&opts.ordersSheet,
		"orders-sheet",
		"",
		"orders sheet name; defaults to Orders",
	)
	flag.StringVar(&opts.month, "month", "", `month to report, e.g. "January 2024"; defaults to the latest`)
	flag.StringVar(&opts.item, "item", "", "item to detail; defaults to the first item")
	flag.StringVar(&opts.preset, "range", domain.PresetThisMonth, "trend range: this_month, last_3_months, last_6_months, all_time")
	flag.StringVar(&opts.chartsDir, "charts", "", "directory to write chart PNGs into")
	flag.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	flag.Parse()

	if (opts.filePath == "") == (opts.tokenPath == "") {
		log.Fatalf("exactly one of --file or --token is required")
	}
	return opts
}

func readWorkbook(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	bar := progressbar.DefaultBytes(info.Size(), "reading "+filepath.Base(path))
	var buf bytes.Buffer
	if _, err := io.Copy(io.MultiWriter(&buf, bar), file); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	_ = bar.Finish()
	return buf.Bytes(), nil
}

// download fetches the workbook with a stored token. The server's OAuth
// client is needed so an expired access token can be refreshed.
func download(ctx context.Context, opts options, logger *zap.Logger, layout *excel.Layout) ([]byte, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.ordersSheet == "" {
		layout.OrdersSheet = cfg.OrdersSheet
	}
	layout.CustomersSheet = cfg.CustomersSheet
	layout.CustomerNameColumn = cfg.CustomerNameColumn
	layout.CustomerTotalColumn = cfg.CustomerTotalColumn
	layout.SummaryColumn = cfg.SummaryColumn
	layout.SummaryStartRow = cfg.SummaryStartRow
	layout.SummaryCells = cfg.SummaryCells

	raw, err := os.ReadFile(opts.tokenPath)
	if err != nil {
		return nil, fmt.Errorf("read token %s: %w", opts.tokenPath, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", opts.tokenPath, err)
	}

	fileID := opts.fileID
	if fileID == "" {
		fileID = cfg.DriveFileID
	}

	var bar *progressbar.ProgressBar
	fetcher := drive.NewFetcher(
		auth.NewGoogleConfig(cfg.GoogleClientID, cfg.GoogleClientSecret),
		drive.Options{
			Timeout: cfg.FetchTimeout,
			Retries: cfg.FetchRetries,
			Progress: func(size int64) io.Writer {
				if bar != nil {
					_ = bar.Exit()
				}
				bar = progressbar.DefaultBytes(size, "downloading "+fileID)
				return bar
			},
		},
		logger,
	)
	data, err := fetcher.Fetch(ctx, &token, fileID)
	if err != nil {
		if bar != nil {
			_ = bar.Exit()
		}
		return nil, err
	}
	if bar != nil {
		_ = bar.Finish()
	}
	return data, nil
}

func writeCharts(dir string, view domain.DashboardView) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	charts := map[string]string{
		"overview.png": view.TotalShareChart,
		"month.png":    view.MonthlyChart,
		"trend.png":    view.TrendChart,
	}
	for name, encoded := range charts {
		png, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func printReport(out io.Writer, book *excel.Workbook, snapshot *domain.Snapshot, view domain.DashboardView) {
	fmt.Fprintf(out, "\nsheet %q: %d orders (%d rows dropped), customers from %s\n\n",
		book.SheetName, len(snapshot.Orders), book.DroppedRows, snapshot.CustomersSource)

	s := snapshot.Summary
	fmt.Fprintf(out, "paid %d  due %d  pending %d  delivered %d  sales %d\n\n",
		s.TotalPaid, s.TotalDue, s.PendingOrders, s.TotalDelivered, s.TotalSalesAllTime)

	fmt.Fprintf(out, "%s: %d orders, %s, most ordered %s\n\n",
		view.SelectedMonth, view.TotalOrdersMonth, view.TotalSalesMonth, view.MostOrderedItem)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tORDERS\tSALES")
	for _, item := range snapshot.TopItems {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", item.ItemName, item.Count, service.FormatRupees(item.TotalSales))
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\n%s: %d orders, %s\n", view.SelectedItem, view.ItemDetail.OrderCount, service.FormatRupees(view.ItemDetail.TotalSales))
	for _, order := range view.ItemDetail.RecentOrders {
		fmt.Fprintf(out, "  %s  %-20s %s\n", order.Date, order.OrderedBy, order.Amount.StringFixed(2))
	}
	fmt.Fprintf(out, "\ntrend %s: %s to %s\n", view.DateRangePreset, view.StartDate, view.EndDate)
}
