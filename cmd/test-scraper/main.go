// Command test-scraper runs the Quebec City info-collecte scrape for one
// address and prints the parsed calendar. The scrape breaks whenever the city
// reworks the page; this is the fastest way to see what it currently parses.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/alertmtl/server/internal/clients/quebecwaste"
	"github.com/alertmtl/server/internal/config"
)

func main() {
	civic := flag.String("civic", "", "civic number to select among search results")
	timeout := flag.Duration("timeout", 45*time.Second, "overall timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: test-scraper [-civic 350] G1R4S9")
		os.Exit(2)
	}

	cfg := config.DefaultConfig()
	client := quebecwaste.NewClient(cfg.Quebec.Waste.BaseURL, cfg.Quebec.Waste.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	schedule, err := client.LookupSchedule(ctx, flag.Arg(0), *civic)
	if err != nil {
		log.Fatalf("Scrape failed: %v", err)
	}

	fmt.Printf("Address: %s\n", schedule.Address)
	streams := make([]string, 0, len(schedule.Dates))
	for stream := range schedule.Dates {
		streams = append(streams, stream)
	}
	sort.Strings(streams)
	for _, stream := range streams {
		fmt.Printf("%s:\n", stream)
		for _, date := range schedule.Dates[stream] {
			fmt.Printf("  %s\n", date.Format("Mon 2006-01-02"))
		}
	}
}
