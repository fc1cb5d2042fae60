// blockip is the one-shot administrative command: it inserts or updates
// the blocklist entry for a single address.
//
//	blockip [-reason "abuse"] [-days 7] <ip>
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ipsentry/ipsentry/internal/config"
	"github.com/ipsentry/ipsentry/internal/pkg/logger"
	"github.com/ipsentry/ipsentry/internal/repository"
	"github.com/ipsentry/ipsentry/internal/service"
)

func main() {
	reason := flag.String("reason", "", "Reason for blocking")
	days := flag.Int("days", 0, "Number of days until the block expires (0 = permanent)")
	flag.Parse()

	ip := flag.Arg(0)
	if ip == "" {
		fmt.Fprintln(os.Stderr, "usage: blockip [-reason ...] [-days N] <ip>")
		os.Exit(2)
	}

	logger.Init("warn")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	svc := service.NewBlocklistService(
		repository.NewMemoryCache(),
		repository.NewBlockedIPRepo(db),
		0,
	)

	entry, created, err := svc.Block(context.Background(), ip, *reason, *days)
	if err != nil {
		log.Fatalf("Failed to block IP: %v", err)
	}

	if created {
		fmt.Printf("Blocked IP %s\n", entry.IPAddress)
	} else {
		fmt.Printf("Updated block for IP %s\n", entry.IPAddress)
	}
	if entry.ExpiresAt != nil {
		fmt.Printf("Expires at %s\n", entry.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
	}
}
