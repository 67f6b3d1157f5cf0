package main

import (
	"fmt"
	"io"
	"os"

	"github.com/saturnino-fabrica-de-software/vigia/internal/alert"
)

// calc_webhook_signature.go - Utility to calculate the alert webhook signature
//
// Usage:
//   go run scripts/calc_webhook_signature.go <secret> < payload.json
//
// Output:
//   sha256=adf716ab3ebb2a1138973de4a44fe454c05c0d070e897fc55220af74807b25ae
//
// Use it to verify payloads received on your alert webhook endpoint: the
// X-Vigia-Signature header must match the output for the raw request body.

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/calc_webhook_signature.go <secret> < payload.json")
		os.Exit(1)
	}

	payload, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read payload: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(alert.Sign(os.Args[1], payload))
}
