// Package testutil provides testing utilities for the scraper: a
// scripted purchase-search server and HAR recording helpers.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

// SearchServer is a scripted stand-in for the purchase-search API.
// Pages are selected by the batchId in the request body; the empty key
// serves the first page.
type SearchServer struct {
	*httptest.Server

	mu       sync.Mutex
	pages    map[string]scriptedPage
	requests []appstore.SearchRequest

	// BlockBatch, when set, holds the response for that batchId until
	// Release is called. Used to test in-flight cancellation.
	blockBatch string
	release    chan struct{}
}

type scriptedPage struct {
	status int
	body   string
}

// NewSearchServer starts a scripted server. Register pages with Script
// before issuing requests.
func NewSearchServer() *SearchServer {
	s := &SearchServer{
		pages:   make(map[string]scriptedPage),
		release: make(chan struct{}),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Script registers the response body for a batchId ("" for the first
// page).
func (s *SearchServer) Script(batchID, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[batchID] = scriptedPage{status: http.StatusOK, body: body}
}

// ScriptStatus registers a non-success response for a batchId.
func (s *SearchServer) ScriptStatus(batchID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[batchID] = scriptedPage{status: status}
}

// BlockBatch makes the response for batchId wait until Release.
func (s *SearchServer) BlockBatch(batchID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blockBatch = batchID
}

// Release unblocks a held response.
func (s *SearchServer) Release() {
	close(s.release)
}

// Requests returns every request body received, in order.
func (s *SearchServer) Requests() []appstore.SearchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]appstore.SearchRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

func (s *SearchServer) handle(w http.ResponseWriter, r *http.Request) {
	var req appstore.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.requests = append(s.requests, req)
	page, ok := s.pages[req.BatchID]
	blocked := s.blockBatch != "" && s.blockBatch == req.BatchID
	s.mu.Unlock()

	if blocked {
		<-s.release
	}

	if !ok {
		http.Error(w, fmt.Sprintf("no scripted page for batchId %q", req.BatchID), http.StatusNotFound)
		return
	}
	if page.status != http.StatusOK {
		w.WriteHeader(page.status)
		return
	}
	_, _ = w.Write([]byte(page.body))
}

// PageBody builds a well-formed search response body.
func PageBody(echoedCursor, nextCursor *string, purchases ...map[string]any) string {
	if purchases == nil {
		purchases = []map[string]any{}
	}
	resp := map[string]any{
		"query":     map[string]any{"batchId": echoedCursor},
		"purchases": purchases,
	}
	if nextCursor == nil {
		resp["nextBatchId"] = ""
	} else {
		resp["nextBatchId"] = *nextCursor
	}

	data, err := json.Marshal(resp)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// PurchaseDay builds one day's purchase record for PageBody.
func PurchaseDay(date, total string, items ...map[string]any) map[string]any {
	return map[string]any{
		"purchaseDate":         date,
		"estimatedTotalAmount": total,
		"plis":                 items,
	}
}

// Item builds one line item for PurchaseDay.
func Item(name, mediaType, amount string) map[string]any {
	return map[string]any{
		"localizedContent": map[string]any{
			"nameForDisplay": name,
			"mediaType":      mediaType,
		},
		"amountPaid": amount,
	}
}
