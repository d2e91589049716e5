package main

import (
	"os"

	"github.com/ngmihq/ngmi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
