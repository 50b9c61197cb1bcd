// Package main is the entry point for the redash CLI binary.
package main

import (
	"os"

	"github.com/manu156/redash-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
