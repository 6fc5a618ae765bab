package main

import (
	"os"

	"github.com/vatbridge-dev/vatbridge/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
