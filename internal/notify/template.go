// Package notify renders alert emails and hands them to the transactional
// mail provider, recording every attempt in the notification log.
package notify

import "strings"

// Vars maps template placeholder names to their rendered values.
// Recognised keys for stock alerts: company_name, total_products,
// out_of_stock_count, low_stock_count, out_of_stock_table, low_stock_table.
type Vars map[string]string

// RenderTemplate substitutes {{name}} placeholders in one deterministic
// left-to-right pass over the input. Each placeholder is resolved from the
// lookup table exactly once; substituted values are never re-scanned, so
// the result cannot depend on replacement order. Unknown placeholders are
// left intact.
func RenderTemplate(tmpl string, vars Vars) string {
	var b strings.Builder
	b.Grow(len(tmpl))
	for {
		start := strings.Index(tmpl, "{{")
		if start < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end := strings.Index(tmpl[start:], "}}")
		if end < 0 {
			b.WriteString(tmpl)
			return b.String()
		}
		end += start
		b.WriteString(tmpl[:start])

		name := strings.TrimSpace(tmpl[start+2 : end])
		if v, ok := vars[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(tmpl[start : end+2])
		}
		tmpl = tmpl[end+2:]
	}
}
