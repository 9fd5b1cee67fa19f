package appstore

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// SearchRequest is the POST body sent to the purchase-search endpoint.
// BatchID is omitted on the first page.
type SearchRequest struct {
	DSID    string `json:"dsid"`
	BatchID string `json:"batchId,omitempty"`
}

// Wire types for the search response. Pointers distinguish absent
// fields from zero values so validation can name what is missing.
type searchResponse struct {
	Query      *searchQuery  `json:"query"`
	NextBatch  *string       `json:"nextBatchId"`
	RawRecords []rawPurchase `json:"purchases"`
}

type searchQuery struct {
	BatchID *string `json:"batchId"`
}

type rawPurchase struct {
	PurchaseDate         *string       `json:"purchaseDate"`
	EstimatedTotalAmount *string       `json:"estimatedTotalAmount"`
	Plis                 []rawLineItem `json:"plis"`
}

type rawLineItem struct {
	LocalizedContent *rawLocalizedContent `json:"localizedContent"`
	AmountPaid       *string              `json:"amountPaid"`
}

type rawLocalizedContent struct {
	NameForDisplay *string `json:"nameForDisplay"`
	MediaType      *string `json:"mediaType"`
}

// Page is one validated page of purchase history.
type Page struct {
	// RequestedCursor is the cursor the API echoes back in query
	// metadata; nil on the first page.
	RequestedCursor *string
	// NextCursor is nil when there are no further pages. The API signals
	// the end with an empty string, normalized here.
	NextCursor *string
	Batches    []DailyBatch
}

// Date layouts the API has been observed to use.
var purchaseDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"Jan 2, 2006",
}

// ParsePage validates and converts a raw search response body.
//
// Structural problems (missing query or purchases) are fatal and
// return ErrMissingField. An absent, null or empty nextBatchId all
// mean the same thing: no further pages. Field-level problems inside a
// line item (bad amount, bad date) degrade gracefully: the value is
// zero-filled and logged.
func ParsePage(data []byte) (*Page, error) {
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	if resp.Query == nil {
		return nil, fmt.Errorf("%w: query", ErrMissingField)
	}
	if resp.RawRecords == nil {
		return nil, fmt.Errorf("%w: purchases", ErrMissingField)
	}

	// A null or empty nextBatchId both mean "no further pages".
	var next *string
	if resp.NextBatch != nil {
		next = normalizeCursor(*resp.NextBatch)
	}

	page := &Page{
		RequestedCursor: resp.Query.BatchID,
		NextCursor:      next,
		Batches:         make([]DailyBatch, 0, len(resp.RawRecords)),
	}

	for i, raw := range resp.RawRecords {
		batch, err := parseBatch(raw)
		if err != nil {
			return nil, fmt.Errorf("purchase %d: %w", i, err)
		}
		page.Batches = append(page.Batches, batch)
	}

	return page, nil
}

func parseBatch(raw rawPurchase) (DailyBatch, error) {
	if raw.PurchaseDate == nil {
		return DailyBatch{}, fmt.Errorf("%w: purchaseDate", ErrMissingField)
	}
	if raw.EstimatedTotalAmount == nil {
		return DailyBatch{}, fmt.Errorf("%w: estimatedTotalAmount", ErrMissingField)
	}

	batch := DailyBatch{
		Date:          parseDateLenient(*raw.PurchaseDate),
		TotalAfterTax: parseAmountLenient(*raw.EstimatedTotalAmount),
		Items:         make([]LineItem, 0, len(raw.Plis)),
	}

	for i, item := range raw.Plis {
		if item.LocalizedContent == nil ||
			item.LocalizedContent.NameForDisplay == nil ||
			item.LocalizedContent.MediaType == nil {
			return DailyBatch{}, fmt.Errorf("%w: plis[%d].localizedContent", ErrMissingField, i)
		}
		if item.AmountPaid == nil {
			return DailyBatch{}, fmt.Errorf("%w: plis[%d].amountPaid", ErrMissingField, i)
		}

		batch.Items = append(batch.Items, LineItem{
			Name:       *item.LocalizedContent.NameForDisplay,
			Type:       *item.LocalizedContent.MediaType,
			AmountPaid: parseAmountLenient(*item.AmountPaid),
		})
	}

	return batch, nil
}

// parseAmountLenient zero-fills on ErrMalformedAmount instead of
// failing the page.
func parseAmountLenient(s string) Currency {
	c, err := ParseCurrency(s)
	if err != nil {
		log.Printf("WARN: %v, coercing to zero", err)
		return Currency{}
	}
	return c
}

func parseDateLenient(s string) time.Time {
	for _, layout := range purchaseDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	log.Printf("WARN: unparseable purchase date %q", s)
	return time.Time{}
}

func normalizeCursor(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
