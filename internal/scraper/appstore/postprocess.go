package appstore

import (
	"fmt"
	"log"
)

// freeItemEpsilon: items at or below this are promotional or refunded
// and carry no spend.
const freeItemEpsilon = 0.01

// FilterFreeItems drops line items whose paid amount is at or below the
// free-item epsilon. A day that loses all its items is dropped
// entirely, total and all; no tax reallocation is attempted for a day
// with no chargeable items.
func FilterFreeItems(days []DailyBatch) []DailyBatch {
	filtered := make([]DailyBatch, 0, len(days))

	for _, day := range days {
		items := make([]LineItem, 0, len(day.Items))
		for _, item := range day.Items {
			if item.AmountPaid.Amount > freeItemEpsilon {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			continue
		}
		filtered = append(filtered, DailyBatch{
			Date:          day.Date,
			TotalAfterTax: day.TotalAfterTax,
			Items:         items,
		})
	}

	return filtered
}

// ConvertToEntries flattens each day into one Purchase per line item,
// reallocating the day's tax across items in proportion to their
// pre-tax amounts. The per-day invariant: reallocated amounts sum back
// to the day's total after tax, up to 2-decimal rounding.
//
// A day whose chargeable sum is zero against a nonzero total cannot be
// reallocated; it is dropped with a logged ErrDegenerateTaxAllocation.
func ConvertToEntries(days []DailyBatch) []Purchase {
	var purchases []Purchase

	for _, day := range days {
		entries, err := convertDay(day)
		if err != nil {
			log.Printf("WARN: dropping day %s: %v", day.Date.Format("2006-01-02"), err)
			continue
		}
		purchases = append(purchases, entries...)
	}

	return purchases
}

func convertDay(day DailyBatch) ([]Purchase, error) {
	var preTax float64
	for _, item := range day.Items {
		preTax += item.AmountPaid.Amount
	}

	if preTax == 0 {
		if day.TotalAfterTax.Amount != 0 {
			return nil, fmt.Errorf("%w: total %.2f over zero chargeable sum",
				ErrDegenerateTaxAllocation, day.TotalAfterTax.Amount)
		}
		// Nothing chargeable and nothing owed.
		return nil, nil
	}

	tax := day.TotalAfterTax.Amount - preTax

	entries := make([]Purchase, 0, len(day.Items))
	for _, item := range day.Items {
		amount := item.AmountPaid.Amount
		entries = append(entries, Purchase{
			Date: day.Date,
			Name: item.Name,
			Type: item.Type,
			AmountPaid: Currency{
				Symbol: item.AmountPaid.Symbol,
				Amount: Round2(amount + tax*(amount/preTax)),
			},
		})
	}

	return entries, nil
}

// AggregateTotals groups purchase amounts by currency symbol. Each
// total is rounded once after summation, not after each addition, so
// floating-point drift is corrected exactly once.
func AggregateTotals(purchases []Purchase) AggregateTotal {
	totals := make(AggregateTotal)
	for _, p := range purchases {
		totals[p.AmountPaid.Symbol] += p.AmountPaid.Amount
	}
	for symbol, amount := range totals {
		totals[symbol] = Round2(amount)
	}
	return totals
}

// Postprocess runs the full pipeline over a completed (or partial)
// ledger: free-item filtering, tax reallocation, currency aggregation.
func Postprocess(days []DailyBatch) ([]Purchase, AggregateTotal) {
	filtered := FilterFreeItems(days)
	purchases := ConvertToEntries(filtered)
	return purchases, AggregateTotals(purchases)
}
