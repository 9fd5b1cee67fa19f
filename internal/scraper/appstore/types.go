// Package appstore defines the common structs and logic for retrieving
// and reconciling an App Store purchase-history ledger.
package appstore

import "time"

// Credential is the session bundle captured from an outbound
// purchase-search request: the account dsid from the request body plus
// the header set the browser actually sent. Immutable once captured.
type Credential struct {
	DSID    string
	Headers map[string]string
}

// Clone returns an independent copy, so a job cannot mutate the
// observer's captured state.
func (c Credential) Clone() Credential {
	headers := make(map[string]string, len(c.Headers))
	for k, v := range c.Headers {
		headers[k] = v
	}
	return Credential{DSID: c.DSID, Headers: headers}
}

// Currency is an amount in a single currency, keyed by the non-numeric
// symbol prefix of the localized string it was parsed from.
type Currency struct {
	Symbol string
	Amount float64
}

// LineItem is one purchased unit (app, song, subscription renewal)
// within a day's purchase batch.
type LineItem struct {
	Name       string
	Type       string
	AmountPaid Currency
}

// DailyBatch is one day's aggregate purchase record as returned by the
// API. TotalAfterTax may exceed the sum of item amounts by the day's
// tax.
type DailyBatch struct {
	Date          time.Time
	TotalAfterTax Currency
	Items         []LineItem
}

// Purchase is a flattened, tax-inclusive per-item record produced by
// the postprocessing pipeline.
type Purchase struct {
	Date       time.Time
	Name       string
	Type       string
	AmountPaid Currency
}

// AggregateTotal maps each observed currency symbol to its summed
// amount. Amounts are never summed across symbols.
type AggregateTotal map[string]float64
