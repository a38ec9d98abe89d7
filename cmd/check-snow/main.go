// Command check-snow queries the snow-removal status for a location from the
// command line, exercising the same resolution and adapter path as the
// server. Useful during storms to verify upstream behavior without going
// through HTTP.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/cache"
	"github.com/alertmtl/server/internal/clients/arcgis"
	"github.com/alertmtl/server/internal/clients/infoneige"
	"github.com/alertmtl/server/internal/clients/montrealwaste"
	"github.com/alertmtl/server/internal/clients/quebecwaste"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/ratelimit"
	"github.com/alertmtl/server/internal/resolver"
	"github.com/alertmtl/server/internal/services"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

func main() {
	postalCode := flag.String("postal", "", "postal code to check (H... or G...)")
	address := flag.String("address", "", "civic address, for Montreal segment lookup")
	segmentID := flag.Int("segment", 0, "Montreal street segment id, bypasses resolution")
	dbPath := flag.String("db", "alertmtl.db", "sqlite database path")
	timeout := flag.Duration("timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	if *postalCode == "" && *segmentID == 0 {
		fmt.Fprintln(os.Stderr, "usage: check-snow -postal H2X1Y6 [-address '3700 rue Saint-Denis'] [-segment 123]")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	st, err := store.Open(*dbPath, cfg.Alerts.MaxAddressesPerSubscriber)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	gate := ratelimit.NewGate(cfg.Montreal.InfoNeige.MinCallInterval)
	arcgisClient := arcgis.NewClient(cfg.Geocoder.URL, cfg.Geocoder.Timeout)
	memCache := cache.New()

	dispatcher := services.NewDispatcher(
		resolver.New(arcgisClient),
		services.NewGeobase(st, cfg.Montreal.Geobase),
		sources.NewMontrealSnow(infoneige.NewClient(cfg.Montreal.InfoNeige.Endpoint, cfg.Montreal.InfoNeige.Timeout, gate), st, cfg.Montreal.InfoNeige.CacheTTL),
		sources.NewQuebecSnow(arcgisClient, st, cfg.Quebec.Snow),
		sources.NewMontrealWaste(montrealwaste.NewClient(cfg.Montreal.Waste.Timeout), memCache, cfg.Montreal.Waste),
		sources.NewQuebecWaste(quebecwaste.NewClient(cfg.Quebec.Waste.BaseURL, cfg.Quebec.Waste.Timeout), st, memCache, cfg.Quebec.Waste),
	)

	ctx, cancel := context.WithTimeout(logging.EnsureLogger(context.Background()), *timeout)
	defer cancel()

	report, err := dispatcher.SnowStatus(ctx, services.SnowQuery{
		PostalCode: *postalCode,
		Address:    *address,
		SegmentID:  *segmentID,
	})
	if err != nil {
		log.Fatalf("Status check failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
}
