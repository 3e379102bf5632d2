package main

import (
	"os"

	"github.com/citypulse/city-events/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
