package main

import (
	"os"

	"github.com/awesome-flow/eventgen/cmd/eventgen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
