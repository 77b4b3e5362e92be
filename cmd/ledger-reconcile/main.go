// ledger-reconcile sweeps for leftovers of interrupted multi-step
// operations: debts keyed to sales that no longer exist, journal rows
// keyed to withdrawn cart sales, and visible orders with an empty sales
// set. These can appear when the process dies between the independent
// writes of removeFromCart or deleteOrder.
//
// Usage (dry-run, count only):
//
//	go run ./cmd/ledger-reconcile
//
// To repair:
//
//	go run ./cmd/ledger-reconcile -dry-run=false -confirm=REPAIR
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/shweretail/shop_backend/config"
	"bitbucket.org/shweretail/shop_backend/utils"
	"bitbucket.org/shweretail/shop_backend/workflow"
)

func main() {
	dryRun := flag.Bool("dry-run", true, "Count inconsistencies only (no writes)")
	confirm := flag.String("confirm", "", "Type REPAIR to proceed when -dry-run=false")
	flag.Parse()

	if !*dryRun && strings.TrimSpace(*confirm) != "REPAIR" {
		fmt.Fprintln(os.Stderr, "set -confirm=REPAIR to proceed when -dry-run=false")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 0)
	ctx = utils.SetUserNameInContext(ctx, "LedgerReconcile")

	report, err := workflow.Reconcile(ctx, *dryRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reconcile failed: %v\n", err)
		os.Exit(1)
	}

	mode := "repaired"
	if report.DryRun {
		mode = "found (dry-run)"
	}
	fmt.Printf("orphaned debts %s: %d\n", mode, report.OrphanedDebts)
	fmt.Printf("orphaned adjustments %s: %d\n", mode, report.OrphanedAdjustments)
	fmt.Printf("empty visible orders %s: %d\n", mode, report.EmptyOrders)
}
