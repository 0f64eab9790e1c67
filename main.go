package main

import (
	"os"

	"github.com/notekiln/notekiln/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
