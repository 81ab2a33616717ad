package alert

import "github.com/stockpulse/stockpulse/internal/model"

// StockReport classifies a tenant's products by stock level.
type StockReport struct {
	TotalProducts int
	OutOfStock    []model.Product
	LowStock      []model.Product
}

// Empty reports whether there is nothing to alert on.
func (r StockReport) Empty() bool {
	return len(r.OutOfStock) == 0 && len(r.LowStock) == 0
}

// BuildStockReport splits products into out-of-stock (none on hand) and
// low-stock (on hand but at or below the reorder threshold). Products
// with no reorder threshold configured only ever count as out-of-stock.
func BuildStockReport(products []model.Product) StockReport {
	r := StockReport{TotalProducts: len(products)}
	for _, p := range products {
		switch {
		case p.Quantity <= 0:
			r.OutOfStock = append(r.OutOfStock, p)
		case p.MinQuantity > 0 && p.Quantity <= p.MinQuantity:
			r.LowStock = append(r.LowStock, p)
		}
	}
	return r
}
