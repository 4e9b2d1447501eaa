package main

import (
	"os"

	"github.com/okent/rekindle/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
