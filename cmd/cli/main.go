package main

import (
	"os"

	"github.com/nuagevault/nuagevault/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
