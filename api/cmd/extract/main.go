package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"quiz-bot/api/internal/app"
	"quiz-bot/api/internal/config"
	"quiz-bot/api/internal/extract"
	"quiz-bot/api/internal/logger"
	"quiz-bot/api/internal/render"
)

func main() {
	nid := flag.String("nid", "", "Numeric test id (required)")
	format := flag.String("format", render.AllFormats, "Comma separated formats, or all_formats")
	outDir := flag.String("out", ".", "Directory the HTML documents are written to")
	allowEmpty := flag.Bool("allow-empty", false, "Render documents even when the test has no questions")
	flag.Parse()

	if *nid == "" {
		fmt.Fprintln(os.Stderr, "Usage: extract -nid <id> [-format questions_only,...] [-out dir]")
		flag.PrintDefaults()
		os.Exit(2)
	}
	vs, err := render.ParseVariants(*format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	zl := logger.New(cfg.LogLevel, "console")
	defer func() { _ = zl.Sync() }()
	lg := logger.NewZapAdapter(zl)

	svc, err := app.NewService(cfg, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.ExtractTimeout)
	defer cancel()

	res, err := svc.Extract(ctx, *nid, vs, extract.Options{AllowEmpty: *allowEmpty})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	paths, err := writeDocuments(*outDir, res.Documents)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: %d question(s)\n", res.Title, len(res.Questions))
	for _, p := range paths {
		fmt.Println("  " + p)
	}
}

func writeDocuments(dir string, docs []*render.Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		p := filepath.Join(dir, d.Filename)
		if err := os.WriteFile(p, d.Content, 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", p, err)
		}
		out = append(out, p)
	}
	return out, nil
}
