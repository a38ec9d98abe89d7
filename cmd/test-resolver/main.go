// Command test-resolver resolves postal codes from the command line, showing
// which strategy answered. Run it when the geocoder misbehaves to confirm the
// FSA fallback still covers the codes subscribers use.
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

	"github.com/alertmtl/server/internal/clients/arcgis"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/resolver"
)

func main() {
	timeout := flag.Duration("timeout", 15*time.Second, "per-lookup timeout")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: test-resolver H2X1Y6 [G1R4S9 ...]")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	res := resolver.New(arcgis.NewClient(cfg.Geocoder.URL, cfg.Geocoder.Timeout))
	baseCtx := logging.EnsureLogger(context.Background())

	for _, postalCode := range flag.Args() {
		ctx, cancel := context.WithTimeout(baseCtx, *timeout)
		location, err := res.Resolve(ctx, postalCode)
		cancel()

		if err != nil {
			log.Printf("%s: %v", postalCode, err)
			continue
		}
		out, _ := json.Marshal(location)
		fmt.Printf("%s: %s\n", postalCode, out)
	}
}
