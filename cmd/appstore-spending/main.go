// Command appstore-spending observes a signed-in App Store session,
// retrieves the account's full purchase history and reports per-currency
// spending totals.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "appstore-spending",
	Short: "Total up App Store purchase history from a signed-in browser session",
	Long: `appstore-spending opens a browser window on the Apple "report a problem"
site, passively captures the session credential once you are signed in,
then pages through the purchase-history API and reconciles the ledger
into per-currency spending totals (day-level tax reallocated across
individual items).

The tool never performs authentication itself and never stores the
captured credential.`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "path to the configuration file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
