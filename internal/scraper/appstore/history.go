package appstore

import "fmt"

// History accumulates validated pages into an ordered ledger of daily
// purchase batches and enforces cursor continuity between pages.
//
// A History is owned by exactly one job. Batches are appended in
// arrival order; nothing is reordered or deduplicated across pages.
type History struct {
	initial bool
	next    *string
	days    []DailyBatch
}

func NewHistory() *History {
	return &History{initial: true}
}

// Visit folds one page into the ledger.
//
// The first page records the returned cursor without checking. Every
// later page must echo the cursor this job actually sent; a mismatch
// means an interleaved or stale response and fails with
// ErrProtocolMismatch, never a silent correction.
func (h *History) Visit(page *Page) error {
	if !h.initial && !cursorsEqual(page.RequestedCursor, h.next) {
		return fmt.Errorf("%w: sent %s, page echoed %s",
			ErrProtocolMismatch, cursorString(h.next), cursorString(page.RequestedCursor))
	}
	h.initial = false

	h.next = page.NextCursor
	h.days = append(h.days, page.Batches...)
	return nil
}

// NextCursor is the cursor to request the next page with; nil means the
// ledger is complete.
func (h *History) NextCursor() *string {
	return h.next
}

// Days returns the accumulated ledger in arrival order.
func (h *History) Days() []DailyBatch {
	return h.days
}

func cursorsEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func cursorString(c *string) string {
	if c == nil {
		return "<none>"
	}
	return *c
}
