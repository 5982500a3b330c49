package main

import (
	"os"

	"github.com/monedero-dev/monedero/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
