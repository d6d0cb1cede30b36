package main

import (
	"os"

	"github.com/MeKo-Tech/rboxdist/cmd/rboxdist/cmd"
)

func main() {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
