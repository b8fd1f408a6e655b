package main

import (
	"os"

	"github.com/jhall/workbench/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
