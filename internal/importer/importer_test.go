package importer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront/internal/domain"
)

type stubProductRepo struct {
	items []domain.Product
}

func (s *stubProductRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.items = append(s.items, p)
	return &p, nil
}

func TestCSVImporter_Run(t *testing.T) {
	csvData := `name,description,price,category,image,stock
Caffe Latte,Espresso with steamed milk,3.5,latte,/images/latte.jpg,100
,,,,,
Butter Croissant,,4.00,Pastry,,`

	repo := &stubProductRepo{}
	imp := NewCSVImporter(strings.NewReader(csvData), repo, nil)

	count, err := imp.Run(context.Background())
	if err != nil {
		t.Fatalf("import run: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 products imported, got %d", count)
	}
	if len(repo.items) != 2 {
		t.Fatalf("expected 2 products saved, got %d", len(repo.items))
	}

	latte := repo.items[0]
	if latte.Name != "Caffe Latte" || latte.Category != "Latte" || latte.Price.String() != "3.5" || latte.Stock != 100 || latte.Image != "/images/latte.jpg" {
		t.Fatalf("unexpected product data: %+v", latte)
	}
	if repo.items[1].Stock != 0 || repo.items[1].Description != "" {
		t.Fatalf("expected optional fields empty, got %+v", repo.items[1])
	}
}

func TestCSVImporter_RejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"bad price":        "name,price,category\nLatte,cheap,Latte",
		"unknown category": "name,price,category\nSmoothie,5,Juice",
		"missing name":     "name,price,category\n,5,Latte",
		"negative stock":   "name,price,category,stock\nLatte,5,Latte,-1",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			repo := &stubProductRepo{}
			_, err := NewCSVImporter(strings.NewReader(data), repo, nil).Run(context.Background())
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if len(repo.items) != 0 {
				t.Fatalf("expected nothing saved, got %d", len(repo.items))
			}
		})
	}
}

func TestCSVImporter_MissingColumn(t *testing.T) {
	_, err := NewCSVImporter(strings.NewReader("name,category\nLatte,Latte"), &stubProductRepo{}, nil).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), `"price"`) {
		t.Fatalf("expected missing price column error, got %v", err)
	}
}
