package main

import (
	"os"

	"github.com/zephyrtronium/calculette/cmd/calculette/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
