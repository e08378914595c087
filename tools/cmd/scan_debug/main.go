package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"wellog/pkg/scan"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: scan_debug <image>")
		os.Exit(2)
	}
	ps, err := scan.Run(context.Background(), os.Args[1], scan.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scan failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("attempts=%d winner profile=%s rotation=%d conf=%.1f\n", ps.Attempts, ps.WonProfile, ps.WonRotation, ps.Confidence)
	fmt.Printf("raw: %q\n", ps.RawText)
	fmt.Printf("corrected: %q\n", ps.CorrectedText)
	b, _ := json.MarshalIndent(ps.Record, "", "  ")
	fmt.Println(string(b))
}
