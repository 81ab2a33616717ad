package notify

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/stockpulse/stockpulse/internal/alert"
	"github.com/stockpulse/stockpulse/internal/model"
)

// StockAlertVars builds the substitution table for a stock alert. The same
// table serves both the built-in body and tenant-stored templates.
func StockAlertVars(companyName string, report alert.StockReport) Vars {
	return Vars{
		"company_name":       html.EscapeString(companyName),
		"total_products":     strconv.Itoa(report.TotalProducts),
		"out_of_stock_count": strconv.Itoa(len(report.OutOfStock)),
		"low_stock_count":    strconv.Itoa(len(report.LowStock)),
		"out_of_stock_table": productTable(report.OutOfStock),
		"low_stock_table":    productTable(report.LowStock),
	}
}

// Built-in stock alert body, used when the tenant has no active template.
const stockAlertBody = `<h2>Stock alert for {{company_name}}</h2>
<p>Products tracked: {{total_products}}</p>
<h3>Out of stock ({{out_of_stock_count}})</h3>
{{out_of_stock_table}}
<h3>Low stock ({{low_stock_count}})</h3>
{{low_stock_table}}`

// BuildStockAlertHTML renders the stock alert body. tmpl may be empty, in
// which case the built-in body is used.
func BuildStockAlertHTML(tmpl string, vars Vars) string {
	if tmpl == "" {
		tmpl = stockAlertBody
	}
	return RenderTemplate(tmpl, vars)
}

// BuildMovementAlertHTML renders the movement change summary table.
func BuildMovementAlertHTML(companyName string, windowDays int, changes []alert.Change) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Movement changes for %s</h2>", html.EscapeString(companyName))
	fmt.Fprintf(&b, "<p>Comparing the last %d days against the %d days before.</p>", windowDays, windowDays)
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr>` +
		"<th>Product</th><th>Previous</th><th>Current</th><th>Change</th></tr>")
	for _, c := range changes {
		name := c.ProductName
		if name == "" {
			name = c.ProductID
		}
		arrow := "&#9650;" // up
		if c.Direction == alert.DirectionDecrease {
			arrow = "&#9660;" // down
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td><td>%s %.1f%%</td></tr>",
			html.EscapeString(name), c.Period1, c.Period2, arrow, c.Percent)
	}
	b.WriteString("</table>")
	return b.String()
}

func productTable(products []model.Product) string {
	if len(products) == 0 {
		return "<p>None</p>"
	}
	var b strings.Builder
	b.WriteString(`<table border="1" cellpadding="6" cellspacing="0"><tr>` +
		"<th>Product</th><th>On hand</th><th>Reorder at</th></tr>")
	for _, p := range products {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%d</td></tr>",
			html.EscapeString(p.Name), p.Quantity, p.MinQuantity)
	}
	b.WriteString("</table>")
	return b.String()
}
