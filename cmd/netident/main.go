// Command netident checks addresses against the Cloudflare and Tor reference
// lists, manages their cache, and serves a whoami endpoint that reports the
// resolved client identity of each request.
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
)

func main() {
	err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errUndetermined):
		os.Exit(1)
	case errors.Is(err, errUsage):
		log.Error(err)
		os.Exit(2)
	default:
		log.Fatal("netident failed", "error", err)
	}
}
