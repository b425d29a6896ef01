package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/logging"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// requiredHeaders must be present in every menu file; description, image
// and stock are optional.
var requiredHeaders = []string{"name", "price", "category"}

// CSVImporter reads menu CSV files and inserts/updates products by name.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	logger      *slog.Logger
}

func NewCSVImporter(r io.Reader, repo ProductWriter, logger *slog.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		logger:      logging.OrDiscard(logger).With("component", "importer"),
	}
}

// Run parses every row and upserts it. It stops at the first invalid row and
// reports how many products were saved before it.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing required column %q", h)
		}
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return imported, fmt.Errorf("read row %d: %w", line, err)
		}
		if blank(record) {
			continue
		}

		p, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("row %d: %w", line, err)
		}
		if _, err := i.productRepo.Upsert(ctx, p); err != nil {
			return imported, fmt.Errorf("upsert product %q: %w", p.Name, err)
		}
		imported++
		i.logger.Debug("product imported", "name", p.Name, "category", p.Category)
	}
	return imported, nil
}

func parseRow(record []string, index map[string]int) (domain.Product, error) {
	name := pick(record, index, "name")
	if name == "" {
		return domain.Product{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	price, err := decimal.NewFromString(pick(record, index, "price"))
	if err != nil || price.IsNegative() {
		return domain.Product{}, fmt.Errorf("%w: invalid price for %q", domain.ErrValidation, name)
	}
	category := domain.NormalizeCategory(pick(record, index, "category"))
	if category == "" {
		return domain.Product{}, fmt.Errorf("%w: unknown category for %q", domain.ErrValidation, name)
	}

	var stock int
	if s := pick(record, index, "stock"); s != "" {
		stock, err = strconv.Atoi(s)
		if err != nil || stock < 0 {
			return domain.Product{}, fmt.Errorf("%w: invalid stock for %q", domain.ErrValidation, name)
		}
	}

	return domain.Product{
		Name:        name,
		Description: pick(record, index, "description"),
		Price:       price.Round(2),
		Category:    category,
		Image:       pick(record, index, "image"),
		Stock:       stock,
	}, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
