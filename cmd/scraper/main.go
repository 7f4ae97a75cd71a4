// Package main provides the catalog-scraper command.
//
// Usage:
//
//	scraper [--base-url URL] [--output FILE] [--delay SECONDS] [--max-pages N] [--max-retries N]
//
// Options may also come from a YAML file (--config, or the XDG config dir)
// and SCRAPER_* environment variables. Flags win over both.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
