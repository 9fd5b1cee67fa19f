package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/asurada/appstore-spending/internal/config"
	"github.com/asurada/appstore-spending/internal/scraper/appstore"
	"github.com/asurada/appstore-spending/internal/scraper/browser"
	"github.com/asurada/appstore-spending/internal/scraper/job"
	"github.com/asurada/appstore-spending/internal/scraper/msgport"
	"github.com/asurada/appstore-spending/internal/scraper/observer"
)

const (
	purchasePageURL = "https://reportaproblem.apple.com/"

	// How long to wait for the user to sign in before giving up.
	credentialTimeout = 5 * time.Minute
)

var showItems bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture a session credential and fetch the purchase ledger",
	RunE:  runScrape,
}

func init() {
	runCmd.Flags().BoolVar(&showItems, "items", false, "also print every individual purchase")
	rootCmd.AddCommand(runCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := browser.Launch(cfg.Headless, cfg.ChromeBin)
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	page, err := browser.NewStealthPage(b, purchasePageURL)
	if err != nil {
		return err
	}
	contextID := string(page.TargetID)

	obs := observer.New()
	hub := msgport.NewHub()
	client := appstore.NewClient(
		appstore.WithEndpoint(cfg.Endpoint),
		appstore.WithReferrer(cfg.Referrer),
	)
	ctrl := job.NewController(obs, hub, client, job.WithThrottle(cfg.Throttle()))

	detach := obs.Attach(page, cfg.Endpoint)

	fmt.Println("Sign in and wait for your purchase history to load...")
	if err := waitForCredential(ctx, ctrl, contextID, page); err != nil {
		return err
	}
	color.Green("Credential captured.")

	// The job issues its own authenticated requests from here on; stop
	// observing so they cannot clobber the captured credential.
	detach()

	port := hub.Connect(contextID)
	go renderProgress(port)

	fmt.Println("Fetching purchase history (this can take a while)...")
	if err := ctrl.Start(ctx, contextID); err != nil {
		// Partial results are still worth showing.
		log.Printf("ERROR: fetch incomplete: %v", err)
	}

	results := ctrl.Results(contextID)
	if results == nil {
		return fmt.Errorf("no results produced")
	}
	render(ctrl.Status(contextID), results)
	return nil
}

// waitForCredential polls until the observer completes a credential.
// On timeout it scans the page HTML for a dsid to tell an unobserved
// session apart from a signed-out one.
func waitForCredential(ctx context.Context, ctrl *job.Controller, contextID string, page interface{ HTML() (string, error) }) error {
	deadline := time.After(credentialTimeout)
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-tick.C:
			if ctrl.Status(contextID) != job.StateNotReady {
				return nil
			}
		case <-deadline:
			if html, err := page.HTML(); err == nil {
				if dsid, err := observer.ScanPageDSID(html); err == nil {
					return fmt.Errorf("signed in (dsid %s) but no purchase-search request observed; reload the page and try again", dsid)
				}
			}
			return fmt.Errorf("no credential captured: %w", appstore.ErrCredentialUnavailable)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func renderProgress(port *msgport.Port) {
	for msg := range port.Events() {
		if msg.Type != msgport.MsgUpdate {
			continue
		}
		if u, ok := msg.Payload.(msgport.Update); ok {
			fmt.Printf("\r  progress: %d%% ", u.Progress)
		}
	}
}

func render(state job.State, results *job.Results) {
	fmt.Println()
	if state == job.StateAborted {
		color.Yellow("Run aborted; totals below cover only the pages fetched.")
	}

	bold := color.New(color.Bold)
	_, _ = bold.Println("Total spending by currency:")

	symbols := make([]string, 0, len(results.TotalAmount))
	for symbol := range results.TotalAmount {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		fmt.Printf("  %s%.2f\n", symbol, results.TotalAmount[symbol])
	}

	if !showItems {
		return
	}
	_, _ = bold.Println("\nPurchases (tax included):")
	for _, p := range results.Purchases {
		fmt.Printf("  %s  %s%.2f  %s (%s)\n",
			p.Date.Format("2006-01-02"), p.AmountPaid.Symbol, p.AmountPaid.Amount, p.Name, p.Type)
	}
}
