// Operator tool: open a browser on the purchase-history page, observe
// the session passively and report whether a credential was captured.
// With -har, also record the observed purchase-search exchanges
// (sanitized) for use as test fixtures.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/asurada/appstore-spending/internal/config"
	"github.com/asurada/appstore-spending/internal/scraper/browser"
	"github.com/asurada/appstore-spending/internal/scraper/observer"
	"github.com/asurada/appstore-spending/internal/scraper/testutil"
)

const purchasePageURL = "https://reportaproblem.apple.com/"

func main() {
	harPath := flag.String("har", "", "write sanitized HAR of observed exchanges to this path")
	cfgPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	b, err := browser.Launch(false, cfg.ChromeBin)
	if err != nil {
		fmt.Printf("Error launching browser: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = b.Close() }()

	page, err := browser.NewStealthPage(b, purchasePageURL)
	if err != nil {
		fmt.Printf("Error opening page: %v\n", err)
		os.Exit(1)
	}
	contextID := string(page.TargetID)

	obs := observer.New()
	obs.OnCapture(func(string) {
		fmt.Println("✅ Credential captured")
	})
	detach := obs.Attach(page, cfg.Endpoint)
	defer detach()

	var recorder *harRecorder
	if *harPath != "" {
		recorder = newHARRecorder(page, cfg.Endpoint)
	}

	fmt.Println("────────────────────────────────────────────────")
	fmt.Println("📋 Instructions:")
	fmt.Println("   - Sign in to the Apple page in the opened window")
	fmt.Println("   - Wait for your purchase history to load")
	fmt.Println("   - Press ENTER here when done")
	fmt.Println("────────────────────────────────────────────────")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')

	cred, ok := obs.Credential(contextID)
	if !ok {
		fmt.Println("⚠️  No credential observed.")
		if html, err := page.HTML(); err == nil {
			if dsid, err := observer.ScanPageDSID(html); err == nil {
				fmt.Printf("   The page is signed in (dsid %s) but no search request fired.\n", dsid)
				fmt.Println("   Reload the page so the site refetches the history.")
			} else {
				fmt.Println("   The page does not look signed in.")
			}
		}
		os.Exit(1)
	}

	fmt.Printf("Captured credential: dsid %s, %d headers\n", cred.DSID, len(cred.Headers))

	if recorder != nil {
		har := testutil.SanitizeHAR(recorder.log())
		if err := testutil.SaveHAR(*harPath, har); err != nil {
			fmt.Printf("Error writing HAR: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %d sanitized entries to %s\n", len(har.Entries), *harPath)
	}
}

// harRecorder captures purchase-search request/response pairs without
// interfering with them.
type harRecorder struct {
	page *rod.Page

	mu      sync.Mutex
	open    map[proto.NetworkRequestID]testutil.HARRequest
	entries []testutil.HAREntry
}

func newHARRecorder(page *rod.Page, endpoint string) *harRecorder {
	r := &harRecorder{
		page: page,
		open: make(map[proto.NetworkRequestID]testutil.HARRequest),
	}

	go page.EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if !strings.HasPrefix(e.Request.URL, endpoint) {
				return
			}
			req := testutil.HARRequest{
				Method: e.Request.Method,
				URL:    e.Request.URL,
				Body:   e.Request.PostData,
			}
			for k, v := range e.Request.Headers {
				req.Headers = append(req.Headers, testutil.HARHeader{Name: k, Value: v.Str()})
			}
			r.mu.Lock()
			r.open[e.RequestID] = req
			r.mu.Unlock()
		},
		func(e *proto.NetworkResponseReceived) {
			r.mu.Lock()
			req, ok := r.open[e.RequestID]
			r.mu.Unlock()
			if !ok {
				return
			}

			entry := testutil.HAREntry{
				Request:  req,
				Response: testutil.HARResponse{Status: e.Response.Status},
			}
			// Body is only available once loading finished; best effort.
			if body, err := (proto.NetworkGetResponseBody{RequestID: e.RequestID}).Call(r.page); err == nil {
				entry.Response.Body = body.Body
			}

			r.mu.Lock()
			delete(r.open, e.RequestID)
			r.entries = append(r.entries, entry)
			r.mu.Unlock()
		},
	)()

	return r
}

func (r *harRecorder) log() *testutil.HARLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &testutil.HARLog{Entries: append([]testutil.HAREntry(nil), r.entries...)}
}
