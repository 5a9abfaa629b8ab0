// Package main provides the tempy command.
package main

import (
	"os"

	"github.com/leapstack-labs/tempy/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
