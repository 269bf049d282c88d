package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	formassistant "github.com/L235/formAssistant"
	"github.com/L235/formAssistant/pkg/formdef"
	"github.com/L235/formAssistant/pkg/mediawiki"
	"github.com/L235/formAssistant/pkg/store"
	"github.com/L235/formAssistant/pkg/watch"
)

func main() {
	config := flag.String("config", "", "configuration document path, URL, or wiki page title (with -api)")
	api := flag.String("api", "", "MediaWiki api.php endpoint for reads, previews, and submissions")
	page := flag.String("page", "", "page the form is rendered on")
	qualifier := flag.String("qualifier", "", "context qualifier for config lookup")
	user := flag.String("user", "", "username for {{USERNAME}} substitution and submissions")
	mode := flag.String("mode", "html", "surface to run: html or tui")
	output := flag.String("output", "", "output file for html mode (stdout if empty)")
	storeDir := flag.String("store-dir", "", "directory-backed page store (local testing)")
	storeDSN := flag.String("store-dsn", "", "SQLite page store data source (local testing)")
	watchConfig := flag.Bool("watch", false, "html mode: re-render when a local config file changes")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *config == "" {
		log.Fatal("a -config document is required")
	}
	if *page == "" {
		log.Fatal("a -page is required to select the form entry")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pages, markup, err := buildBackends(*api, *storeDir, *storeDSN, logger)
	if err != nil {
		log.Fatalf("backend setup: %v", err)
	}

	source := parseSource(*config, pages)
	if source == nil {
		log.Fatalf("invalid config source: %q", *config)
	}

	opts := []formassistant.Option{
		formassistant.WithSource(source),
		formassistant.WithLogger(logger),
	}
	if pages != nil {
		opts = append(opts, formassistant.WithPageStore(pages))
	}
	if markup != nil {
		opts = append(opts, formassistant.WithMarkupRenderer(markup))
	}
	assistant := formassistant.New(opts...)

	rctx := formdef.Context{
		Page:      *page,
		Qualifier: *qualifier,
		Username:  *user,
	}

	switch *mode {
	case "tui":
		runTUI(ctx, assistant, rctx)
	case "html":
		runHTML(ctx, assistant, rctx, *output, *config, *watchConfig, logger)
	default:
		log.Fatalf("unknown mode %q: want html or tui", *mode)
	}
}

func runTUI(ctx context.Context, assistant *formassistant.Orchestrator, rctx formdef.Context) {
	outcome, err := assistant.Fill(ctx, rctx)
	if err != nil {
		log.Fatalf("session failed: %v", err)
	}
	if outcome == nil {
		fmt.Println("Nothing submitted.")
	}
}

func runHTML(ctx context.Context, assistant *formassistant.Orchestrator, rctx formdef.Context, output, configPath string, watchConfig bool, logger *slog.Logger) {
	render := func() {
		html, err := assistant.RenderHTML(ctx, rctx)
		if err != nil {
			log.Fatalf("render failed: %v", err)
		}
		if html == nil {
			log.Fatalf("no form configured for page %q", rctx.Page)
		}
		if output != "" {
			if err := os.WriteFile(output, html, 0o644); err != nil {
				log.Fatalf("write output: %v", err)
			}
			fmt.Printf("Form written to %s\n", output)
		} else {
			fmt.Println(string(html))
		}
	}

	render()

	if !watchConfig {
		return
	}
	if isRemote(configPath) {
		log.Fatal("-watch needs a local config file")
	}
	watcher := watch.New(configPath, func([]byte) { render() }, watch.WithLogger(logger))
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("watch failed: %v", err)
	}
}

// buildBackends wires the page store and markup renderer from the flag set.
// An API endpoint serves both roles; the local stores are for offline runs.
func buildBackends(api, storeDir, storeDSN string, logger *slog.Logger) (store.PageStore, *mediawiki.Client, error) {
	if api != "" {
		client, err := mediawiki.NewClient(api, mediawiki.WithLogger(logger))
		if err != nil {
			return nil, nil, err
		}
		return client, client, nil
	}
	if storeDSN != "" {
		pages, err := store.OpenSQLStore(storeDSN)
		if err != nil {
			return nil, nil, err
		}
		return pages, nil, nil
	}
	if storeDir != "" {
		pages, err := store.NewFileStore(storeDir)
		if err != nil {
			return nil, nil, err
		}
		return pages, nil, nil
	}
	return nil, nil, nil
}

func parseSource(raw string, pages store.PageStore) formassistant.Source {
	path := strings.TrimSpace(raw)
	if path == "" {
		return nil
	}
	if isRemote(path) {
		return formassistant.SourceFromURL(path, nil)
	}
	if _, err := os.Stat(path); err == nil {
		return formassistant.SourceFromFile(path)
	}
	if pages != nil {
		return formassistant.SourceFromPage(pages, path)
	}
	return formassistant.SourceFromFile(path)
}

func isRemote(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
