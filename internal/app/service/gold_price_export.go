package service

import (
	"context"
	"fmt"

	"github.com/fajargold/fajargold-backend/internal/app/model"
	"github.com/fajargold/fajargold-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet       = "Harga Emas"
	ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportFilename names the workbook for a date range
func ExportFilename(startDate, endDate string) string {
	return fmt.Sprintf("harga-emas_%s_%s.xlsx", startDate, endDate)
}

var exportHeader = []interface{}{
	"Tanggal", "Jual 24K", "Beli 24K", "Jual 22K", "Beli 22K", "Jual 18K", "Beli 18K", "Sumber",
}

// ExportHistory renders snapshots between two dates as an XLSX workbook
func (s *goldPriceService) ExportHistory(startDate, endDate string) ([]byte, error) {
	prices, err := s.findRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, p := range prices {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{
			p.SourceDate.In(s.opts.Location).Format("2006-01-02 15:04"),
			p.Sell24K, p.Buy24K,
			p.Sell22K, p.Buy22K,
			p.Sell18K, p.Buy18K,
			string(p.Source),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ArchiveHistory uploads the range export and returns an expiring download link
func (s *goldPriceService) ArchiveHistory(ctx context.Context, startDate, endDate string) (*model.ExportArchive, error) {
	if s.opts.Archive == nil {
		return nil, ErrArchiveDisabled
	}

	data, err := s.ExportHistory(startDate, endDate)
	if err != nil {
		return nil, err
	}

	key := s.opts.Archive.NewKey(ExportFilename(startDate, endDate))
	if err := s.opts.Archive.Put(ctx, key, data, ExportContentType); err != nil {
		logger.Error("Failed to archive gold price export", err, logger.Fields{"key": key})
		return nil, err
	}
	url, err := s.opts.Archive.PresignGet(ctx, key, s.opts.ArchiveTTL)
	if err != nil {
		return nil, err
	}

	logger.Info("Gold price export archived", logger.Fields{"key": key, "bytes": len(data)})
	return &model.ExportArchive{
		Key:       key,
		URL:       url,
		ExpiresAt: s.now().Add(s.opts.ArchiveTTL),
		Size:      len(data),
	}, nil
}
