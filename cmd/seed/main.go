package main

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fajargold/fajargold-backend/config"
	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/internal/app/repository"
	"github.com/fajargold/fajargold-backend/internal/db"
	"github.com/fajargold/fajargold-backend/pkg/goldprice"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const batchSize = 1000

var dateLayouts = []string{"2006-01-02 15:04", "2006-01-02", "02/01/2006"}

// importSummary counts what happened to each data row
type importSummary struct {
	Total     int
	Valid     int
	Skipped   int
	Duplicate int
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	goldPriceRepo := repository.NewGoldPriceRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	rows, err := readRows(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	prices, summary := parsePriceRows(rows, cfg.GoldPrice.Location(), cfg.GoldPrice.BuyDiscount)
	printSummary(summary)
	if len(prices) == 0 {
		fmt.Println("Nothing to import.")
		return
	}

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	changes := classifyHistory(prices)
	if err := importHistory(goldPriceRepo, prices, changes); err != nil {
		log.Fatal("Import failed, nothing was stored:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total snapshots imported: %d\n", len(prices))
	fmt.Printf("Total change records: %d\n", len(changes))
}

// importHistory stores snapshots and their change records in one transaction
func importHistory(repo repository.GoldPriceRepository, prices []model.GoldPrice, changes []*model.GoldPriceChange) error {
	return repo.Transaction(func(snapshots repository.GoldPriceRepository, changeRepo repository.GoldPriceChangeRepository) error {
		if err := snapshots.BulkCreate(prices, batchSize); err != nil {
			return fmt.Errorf("failed to bulk create gold prices: %w", err)
		}
		if err := changeRepo.CreateBatch(changes); err != nil {
			return fmt.Errorf("failed to store change records: %w", err)
		}
		return nil
	})
}

func readRows(filePath string) ([][]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}
	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}
	return rows, nil
}

// parsePriceRows turns "date | 24K sell price | description" rows into
// snapshots sorted by date. The first row is a header.
func parsePriceRows(rows [][]string, loc *time.Location, buyDiscount float64) ([]model.GoldPrice, importSummary) {
	var summary importSummary
	var prices []model.GoldPrice
	seen := make(map[string]bool)
	buyFactor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(buyDiscount))

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}
		summary.Total++

		if len(row) < 2 {
			summary.Skipped++
			continue
		}

		date, err := parseDate(strings.TrimSpace(row[0]), loc)
		if err != nil {
			summary.Skipped++
			continue
		}
		price, err := parseRupiah(row[1])
		if err != nil {
			summary.Skipped++
			continue
		}
		sell, err := goldprice.FromBase(goldprice.Purity24K, price)
		if err != nil {
			summary.Skipped++
			continue
		}

		key := fmt.Sprintf("%s|%d", date.Format(time.RFC3339), price)
		if seen[key] {
			summary.Duplicate++
			continue
		}
		seen[key] = true

		description := "Imported from spreadsheet"
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			description = strings.TrimSpace(row[2])
		}

		g := model.GoldPrice{
			Source:      model.SourceImport,
			SourceDate:  date,
			Description: description,
		}
		g.SetPrices(sell, goldprice.Scale(sell, buyFactor))
		prices = append(prices, g)
	}

	sort.SliceStable(prices, func(a, b int) bool {
		return prices[a].SourceDate.Before(prices[b].SourceDate)
	})
	summary.Valid = len(prices)
	return prices, summary
}

// classifyHistory derives change records between consecutive imported snapshots
func classifyHistory(prices []model.GoldPrice) []*model.GoldPriceChange {
	classifier := goldprice.NewClassifier()
	var changes []*model.GoldPriceChange
	for i := 1; i < len(prices); i++ {
		prev, cur := prices[i-1].SellSet(), prices[i].SellSet()
		if prev == cur {
			continue
		}
		for _, rec := range classifier.ClassifyAll(prev, cur, string(model.SourceImport), prices[i].SourceDate) {
			rec.Notes = "Updated via " + string(model.SourceImport)
			changes = append(changes, model.NewGoldPriceChange(rec))
		}
	}
	return changes
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseRupiah accepts "2500000", "2.500.000", "Rp 2.500.000" and
// "Rp 2.500.000,50". Sen after the decimal comma round half-up.
func parseRupiah(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.ReplaceAll(s, " ", "")

	var sen string
	if i := strings.LastIndex(s, ","); i >= 0 && len(s)-i-1 >= 1 && len(s)-i-1 <= 2 {
		s, sen = s[:i], s[i+1:]
	}
	s = strings.NewReplacer(".", "", ",", "").Replace(s)
	if sen == "" {
		return strconv.ParseInt(s, 10, 64)
	}

	d, err := decimal.NewFromString(s + "." + sen)
	if err != nil {
		return 0, fmt.Errorf("invalid rupiah %q: %w", raw, err)
	}
	return d.Round(0).IntPart(), nil
}

func printSummary(s importSummary) {
	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", s.Total)
	fmt.Printf("  Valid snapshots: %d\n", s.Valid)
	fmt.Printf("  Skipped rows: %d\n", s.Skipped)
	fmt.Printf("  Duplicate rows: %d\n", s.Duplicate)
}
