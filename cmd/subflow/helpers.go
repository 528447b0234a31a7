package main

import (
	"fmt"
	"io"

	"subflow/internal/preflight"
)

func printPreflight(w io.Writer, results []preflight.Result) {
	for _, result := range results {
		status := "ok"
		if !result.Passed {
			status = "FAIL"
		}
		if result.Detail != "" {
			fmt.Fprintf(w, "%-4s %s: %s\n", status, result.Name, result.Detail)
			continue
		}
		fmt.Fprintf(w, "%-4s %s\n", status, result.Name)
	}
}
