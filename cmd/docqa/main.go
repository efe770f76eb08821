// Command docqa answers questions about a collection of PDF documents.
// It provides a CLI (via Cobra), a terminal chat UI, and an HTTP server
// exposing upload and query endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/docqa-go/cmd/docqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
