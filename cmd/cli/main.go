package main

import (
	"os"

	"github.com/rundown-app/rundown/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
