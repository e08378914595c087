package main

import (
	"flag"
	"fmt"
	"os"

	entryupdater "wellog/process/entry_updater"
)

func main() {
	dir := flag.String("dir", "public/journal", "directory to rescan for page photos")
	dry := flag.Bool("dry-run", true, "dry-run: don't write to DB")
	minConf := flag.Float64("min-conf", 40, "minimum ensemble confidence to accept a rescan")
	flag.Parse()

	if os.Getenv("DB_DSN") == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export and retry")
		os.Exit(2)
	}

	if err := entryupdater.Run(*dir, *dry, *minConf); err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}
