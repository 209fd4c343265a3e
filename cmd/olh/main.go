package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"olh/internal/core"
)

func main() {
	os.Exit(run())
}

func run() int {
	opts, err := core.ParseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if core.IsHelp(err) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	filetree, err := core.BuildFiletree(opts.Paths)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building filetree: %v\n", err)
		return 1
	}

	files, skipped := filetree.Partition()
	for _, f := range skipped {
		fmt.Printf("- skipped %s (unsupported file type)\n", f.Path())
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no PDF, PNG, JPG, JPEG, PPT or PPTX files found")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	payloads := core.BuildPayloads(files, opts.Metadata)
	uploader := core.NewUploader(opts.Server, opts.Token, opts.Concurrency)
	fmt.Printf("Uploading %d file(s) to %s\n", len(payloads), opts.Server)

	failed := 0
	for _, r := range uploader.UploadAll(ctx, payloads) {
		if r.Err != nil {
			failed++
			fmt.Printf("✗ %s: %v\n", r.Path, r.Err)
			continue
		}
		fmt.Printf("✓ %s -> %s (%s)\n", r.Path, r.MaterialID, r.Status)
	}

	fmt.Printf("\n%d uploaded, %d failed\n", len(payloads)-failed, failed)
	if failed > 0 {
		return 1
	}
	return 0
}
