package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"bom-manager/core/config"
	"bom-manager/core/database"
	"bom-manager/core/scheme"
	"bom-manager/core/store"
	"bom-manager/feature/stock"
)

func main() {
	// Load config
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	sch, err := scheme.LoadFile(cfg.Import.SchemePath)
	if err != nil {
		log.Fatal(err)
	}

	// Connect to DB
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatal(err)
	}
	st := store.New(db, sch)
	ctx := context.Background()

	// Test 1: Scheme against the live tables
	fmt.Println("=== TEST 1: Scheme Check ===")
	if err := st.Migrate(ctx); err != nil {
		log.Fatal(err)
	}
	counts := map[string]int64{}
	for _, name := range sch.Tables() {
		n, err := st.Count(ctx, name)
		if err != nil {
			log.Fatal(err)
		}
		counts[name] = n
		fmt.Printf("%-16s %d rows\n", name, n)
	}

	// Test 2: Orphaned BOM lines and unpriced demand
	fmt.Println("\n=== TEST 2: Purchase Dry Run ===")
	e := stock.NewEngine(st, nil, stock.WithUnknownShop(cfg.Purchase.UnknownShop))
	lines, err := e.PlanPurchase(ctx, "", 1)
	if err != nil {
		fmt.Printf("Purchase planning failed: %v\n", err)
	}
	unpriced := 0
	for _, l := range lines {
		if !l.Priced {
			unpriced++
			fmt.Printf("NO OFFER: %s (%s) x%d\n", l.DeviceID, l.Manufacturer, l.Quantity)
		}
	}
	fmt.Printf("Lines to purchase: %d, without offer: %d\n", len(lines), unpriced)

	// Test 3: Committed projects
	fmt.Println("\n=== TEST 3: Projects ===")
	projects, err := e.Projects(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range projects {
		fmt.Printf("%-24s devices=%d parts=%d committed=%t\n", p.Name, p.Devices, p.Parts, p.Committed)
	}

	// Save detailed output
	output := map[string]interface{}{
		"tables":         counts,
		"purchase_lines": len(lines),
		"unpriced_lines": unpriced,
		"projects":       projects,
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	os.WriteFile("debug_inventory.json", data, 0644)

	fmt.Println("\nDebug complete. Check debug_inventory.json for details.")
}
