// Package main runs a browser-use session from the command line: it launches
// a playwright-backed transport, navigates to a URL, and prints the
// interactive-element enumeration a host agent would receive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rishabhcli/browser-use/pkg/browser"
	pwtransport "github.com/rishabhcli/browser-use/pkg/browser/playwright"
	"github.com/rishabhcli/browser-use/pkg/config"
)

const version = "0.1.0"

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config (optional)")
		url         = flag.String("url", "", "URL to open")
		storagePath = flag.String("storage", "", "cookie storage state file (optional)")
		headless    = flag.Bool("headless", true, "run the browser headless")
		screenshot  = flag.String("screenshot", "", "write a screenshot to this file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("browser-use v%s\n", version)
		return
	}
	if *url == "" {
		fmt.Fprintln(os.Stderr, "usage: browseruse -url https://example.com [-config path]")
		os.Exit(2)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		cfg = loaded
	}

	transport, err := pwtransport.New(pwtransport.Options{Headless: *headless})
	if err != nil {
		log.Fatalf("transport: %v", err)
	}
	defer transport.Close()

	session, err := browser.NewSession(transport, cfg)
	if err != nil {
		log.Fatalf("session: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session.Start(ctx)
	defer session.Stop()

	if *storagePath != "" {
		if err := session.LoadStorage(*storagePath); err != nil {
			log.Printf("storage restore failed: %v", err)
		}
	}

	if _, err := session.Dispatch(ctx, browser.Navigate(*url)); err != nil {
		log.Fatalf("navigate: %v", err)
	}

	outcome, err := session.Dispatch(ctx, browser.RequestState())
	if err != nil {
		log.Fatalf("state request: %v", err)
	}

	state := outcome.State
	fmt.Printf("%s - %s\n", state.URL, state.Title)
	fmt.Printf("extracted %d elements at %s\n\n", len(state.Snapshot.Elements), state.Snapshot.TakenAt.Format(time.RFC3339))
	fmt.Println(browser.FormatSnapshot(state.Snapshot))

	if *screenshot != "" && state.Screenshot != nil {
		if err := os.WriteFile(*screenshot, state.Screenshot, 0o644); err != nil {
			log.Printf("screenshot write failed: %v", err)
		}
	}

	if *storagePath != "" {
		if err := session.SaveStorage(*storagePath); err != nil {
			log.Printf("storage save failed: %v", err)
		}
	}
}
