// Package alert implements the stock-movement change detection and the
// schedule gating that decides when a tenant's alert actually fires.
package alert

import (
	"math"
	"sort"
	"time"

	"github.com/stockpulse/stockpulse/internal/model"
)

// Change direction values.
const (
	DirectionIncrease = "increase"
	DirectionDecrease = "decrease"
)

// Change is a per-product movement delta between two adjacent windows.
type Change struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	NameAr      string  `json:"name_ar,omitempty"`
	Period1     int64   `json:"period1_total"`
	Period2     int64   `json:"period2_total"`
	Percent     float64 `json:"change_percent"`
	Direction   string  `json:"change_type"`
}

// DeltaOptions controls a movement comparison run.
type DeltaOptions struct {
	WindowDays       int
	ThresholdPercent float64
	// NetMode subtracts outbound movement quantities instead of summing
	// stored magnitudes. Off by default: the alert measures movement
	// volume, not net stock change.
	NetMode bool
	Now     time.Time
}

// ComputeChanges aggregates movement quantities per product over two
// adjacent windows ending at opts.Now and returns the significant changes,
// sorted descending by percent.
//
// Window boundaries: period2 is (now-W, now], period1 is (now-2W, now-W].
// Products with zero activity in both windows are absent from the result.
func ComputeChanges(movements []model.StockMovement, products map[string]model.Product, opts DeltaOptions) []Change {
	now := opts.Now.UTC()
	window := time.Duration(opts.WindowDays) * 24 * time.Hour
	midpoint := now.Add(-window)
	start := now.Add(-2 * window)

	period1 := make(map[string]int64)
	period2 := make(map[string]int64)
	for _, mv := range movements {
		ts := mv.CreatedAt
		if !ts.After(start) || ts.After(now) {
			continue
		}
		qty := mv.Quantity
		if opts.NetMode && outbound(mv.MovementType) {
			qty = -qty
		}
		if ts.After(midpoint) {
			period2[mv.ProductID] += qty
		} else {
			period1[mv.ProductID] += qty
		}
	}

	seen := make(map[string]bool, len(period1)+len(period2))
	for id := range period1 {
		seen[id] = true
	}
	for id := range period2 {
		seen[id] = true
	}

	changes := make([]Change, 0, len(seen))
	for id := range seen {
		p1, p2 := period1[id], period2[id]
		if p1 == 0 && p2 == 0 {
			continue
		}
		c := Change{ProductID: id, Period1: p1, Period2: p2}
		if p, ok := products[id]; ok {
			c.ProductName = p.Name
			c.NameAr = p.NameAr
		}
		if p1 == 0 {
			if p2 > 0 {
				c.Percent = 100
			}
		} else {
			c.Percent = math.Abs(float64(p2-p1)) / float64(p1) * 100
		}
		if p2 >= p1 {
			c.Direction = DirectionIncrease
		} else {
			c.Direction = DirectionDecrease
		}
		if c.Percent < opts.ThresholdPercent {
			continue
		}
		changes = append(changes, c)
	}

	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Percent != changes[j].Percent {
			return changes[i].Percent > changes[j].Percent
		}
		return changes[i].ProductID < changes[j].ProductID
	})
	return changes
}

func outbound(movementType string) bool {
	switch movementType {
	case model.MovementOut, model.MovementAdjustmentSub:
		return true
	}
	return false
}
