package main

import (
	"os"

	"github.com/splitkit/splitkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
